package model

// Bin is a capacity-limited seating group inside a room.  Bins are
// scoped to a (program, level) pair and are read-only for the
// allocator.
//
// Fields:
//  ID       – primary key identifier; also the fill order.
//  Name     – display name.
//  RoomID   – room that contains the bin.
//  RoomName – name of that room, filled by joined reads.
//  Program  – program code the bin serves.
//  Level    – program level the bin serves.
//  Capacity – maximum number of seated students per exam.
type Bin struct {
	ID       uint64 `json:"bin_id"`    // bins.id
	Name     string `json:"bin_name"`  // bins.name
	RoomID   uint64 `json:"room_id"`   // bins.room_id
	RoomName string `json:"room_name"` // rooms.name
	Program  string `json:"program"`   // bins.program
	Level    string `json:"level"`     // bins.level
	Capacity int    `json:"capacity"`  // bins.capacity
}

// Room is a physical room that hosts one or more bins.
type Room struct {
	ID       uint64 // rooms.id
	Name     string // rooms.name
	Capacity int    // rooms.capacity
	Floor    string // rooms.floor
}
