package redis

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/jurisdoc/internal/db"
)

// HReplace drops the hash and writes the new fields inside one MULTI/EXEC,
// so readers and the FT index never observe a half-written record.
func (s *Store) HReplace(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return &db.Error{Op: db.OpHSet, Key: key, Err: errors.New("no fields")}
	}

	results := s.client.DoMulti(ctx,
		s.b().Multi().Build(),
		s.b().Del().Key(key).Build(),
		s.buildHSet(key, fields),
		s.b().Exec().Build(),
	)
	for _, res := range results {
		if err := res.Error(); err != nil {
			if rueidis.IsRedisNil(err) {
				err = db.ErrTxAborted
			}
			return &db.Error{Op: db.OpMulti, Key: key, Err: err}
		}
	}

	// EXEC succeeds even when a queued command failed at run time.
	replies, _ := results[len(results)-1].ToArray()
	for _, r := range replies {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Key: key, Err: err}
		}
	}
	return nil
}

// buildHSet emits fields in sorted order so the wire command is deterministic.
func (s *Store) buildHSet(key string, fields map[string]string) rueidis.Completed {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	cmd := s.b().Hset().Key(key).FieldValue()
	for _, k := range names {
		cmd = cmd.FieldValue(k, fields[k])
	}
	return cmd.Build()
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	return m, nil
}

// HMGetMulti fetches the named fields of many hashes in a single DoMulti round-trip.
func (s *Store) HMGetMulti(ctx context.Context, keys []string, fields []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(fields) == 0 {
		return nil, &db.Error{Op: db.OpHMGet, Err: errors.New("no fields requested")}
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hmget().Key(key).Field(fields...).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))

	for i, res := range results {
		values, err := res.ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpHMGet, Key: keys[i], Err: err}
		}
		out[i] = zipFields(fields, values)
	}

	return out, nil
}

// zipFields pairs HMGET values with their names. All-nil replies mean the hash is absent.
func zipFields(fields []string, values []rueidis.RedisMessage) map[string]string {
	var m map[string]string
	for j := 0; j < len(fields) && j < len(values); j++ {
		if values[j].IsNil() {
			continue
		}
		v, err := values[j].ToString()
		if err != nil {
			continue
		}
		if m == nil {
			m = make(map[string]string, len(fields))
		}
		m[fields[j]] = v
	}
	return m
}

// Scan iterates keys matching a pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(500).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Key: pattern, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
