package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/exam-seating/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 || cw.size+int64(len(b)) <= cw.limit {
        cw.buf.Write(b)
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// truncated reports whether the body outgrew the capture limit; such
// responses are not cached.
func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// ExamCache caches GET responses of the seating read endpoints in
// Redis.  Entries of a single exam live under <prefix>:exam:<id>: and
// listings under <prefix>:exams:, so an allocation run can drop exactly
// what it made stale.
type ExamCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

// NewExamCache returns a cache; a nil client or disabled config makes
// the middleware a pass-through and invalidation a no-op.
func NewExamCache(cfg config.CacheConfig, rdb *redis.Client) *ExamCache {
    if !cfg.Enabled {
        rdb = nil
    }
    return &ExamCache{cfg: cfg, rdb: rdb}
}

// examPrefix is the key namespace of one exam's cached reads.
func (ec *ExamCache) examPrefix(examID uint64) string {
    return ec.cfg.Prefix + ":exam:" + strconv.FormatUint(examID, 10) + ":"
}

func (ec *ExamCache) listPrefix() string { return ec.cfg.Prefix + ":exams:" }

// Generation counters sit outside the entry namespaces so the SCAN in
// InvalidateExam never removes them.
func (ec *ExamCache) examGenKey(examID uint64) string {
    return ec.cfg.Prefix + ":gen:exam:" + strconv.FormatUint(examID, 10)
}

func (ec *ExamCache) listGenKey() string { return ec.cfg.Prefix + ":gen:exams" }

// genKeyFor returns the counter guarding the namespace keyFor picks.
func (ec *ExamCache) genKeyFor(c echo.Context) string {
    if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil && id > 0 {
        return ec.examGenKey(id)
    }
    return ec.listGenKey()
}

// storeIfCurrent writes the entry only while the generation read before
// the handler ran is still current; an invalidation in between bumps it.
var storeIfCurrent = redis.NewScript(`
    local gen = redis.call('GET', KEYS[2]) or '0'
    if gen ~= ARGV[1] then
        return 0
    end
    redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
    return 1
`)

// keyFor places requests carrying an :id param in that exam's
// namespace and everything else in the listing namespace.  The tail
// hashes route, query and role so ADMIN and STAFF never share entries.
func (ec *ExamCache) keyFor(c echo.Context) string {
    role, _ := c.Get(CtxRole).(string)
    sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery + "#" + role))
    if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil && id > 0 {
        return fmt.Sprintf("%s%x", ec.examPrefix(id), sum[:])
    }
    return fmt.Sprintf("%s%x", ec.listPrefix(), sum[:])
}

// Middleware returns the caching middleware.  Only successful GET
// responses are stored; X-Cache reports HIT or MISS.
func (ec *ExamCache) Middleware() echo.MiddlewareFunc {
    if ec.rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    maxBody := int64(ec.cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := ec.keyFor(c)

            if bs, err := ec.rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, HeaderRequestID) { continue }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            genKey := ec.genKeyFor(c)
            gen, err := ec.rdb.Get(ctx, genKey).Int64()
            if err != nil && err != redis.Nil {
                return next(c)
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated() {
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                _ = storeIfCurrent.Run(context.WithoutCancel(ctx), ec.rdb, []string{key, genKey},
                    gen, payload, ec.cfg.TTL.Milliseconds()).Err()
            }
            return nil
        }
    }
}

// InvalidateExam deletes every cached read of the exam plus all cached
// listings, whose assigned flags and bins may have changed.  Bumping the
// generations first keeps reads already in flight from storing what
// they loaded before the change.
func (ec *ExamCache) InvalidateExam(ctx context.Context, examID uint64) error {
    if ec.rdb == nil {
        return nil
    }
    pipe := ec.rdb.TxPipeline()
    pipe.Incr(ctx, ec.examGenKey(examID))
    pipe.Incr(ctx, ec.listGenKey())
    if _, err := pipe.Exec(ctx); err != nil {
        return err
    }
    for _, pattern := range []string{ec.examPrefix(examID) + "*", ec.listPrefix() + "*"} {
        if err := ec.deleteMatching(ctx, pattern); err != nil {
            return err
        }
    }
    return nil
}

func (ec *ExamCache) deleteMatching(ctx context.Context, pattern string) error {
    var cursor uint64
    for {
        keys, next, err := ec.rdb.Scan(ctx, cursor, pattern, 200).Result()
        if err != nil {
            return err
        }
        if len(keys) > 0 {
            if err := ec.rdb.Del(ctx, keys...).Err(); err != nil {
                return err
            }
        }
        if next == 0 {
            return nil
        }
        cursor = next
    }
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}
