package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrSnakeDoc/curator/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Hash fields of a persisted acquisition.
const (
	fieldID           = "id"
	fieldName         = "name"
	fieldDescription  = "description"
	fieldImageURL     = "imageUrl"
	fieldDateAcquired = "dateAcquired"
	fieldSource       = "source"
	fieldTags         = "tags"
)

// updateScript writes the given field/value pairs only if the hash still
// exists, so a patch racing a delete cannot resurrect a partial record.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// Store persists acquisitions as one Redis hash per record plus an index
// set of all IDs. A Store without a client reports every operation as
// unavailable.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store. client may be nil.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ready reports whether a client is configured.
func (s *Store) Ready() bool {
	return s.client != nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return domain.ErrUnavailable
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// Create stores a new acquisition and indexes its ID
func (s *Store) Create(ctx context.Context, a *domain.Acquisition) error {
	if s.client == nil {
		return domain.ErrUnavailable
	}

	fields, err := encode(a)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, AcquisitionKey(a.ID), fields)
		pipe.SAdd(ctx, AllAcquisitionsKey(), a.ID)
		return nil
	})
	if err != nil {
		return storeErr("create acquisition", err)
	}
	return nil
}

// Get retrieves an acquisition by ID
func (s *Store) Get(ctx context.Context, id string) (*domain.Acquisition, error) {
	if s.client == nil {
		return nil, domain.ErrUnavailable
	}

	vals, err := s.client.HGetAll(ctx, AcquisitionKey(id)).Result()
	if err != nil {
		return nil, storeErr("get acquisition", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	return decode(vals)
}

// List retrieves every indexed acquisition, ordered by ID. Records that cannot
// be decoded, and index entries whose record is gone, are skipped and their
// IDs returned separately. Transport errors abort the whole listing.
func (s *Store) List(ctx context.Context) ([]*domain.Acquisition, []string, error) {
	if s.client == nil {
		return nil, nil, domain.ErrUnavailable
	}

	ids, err := s.client.SMembers(ctx, AllAcquisitionsKey()).Result()
	if err != nil {
		return nil, nil, storeErr("list acquisition ids", err)
	}

	acquisitions := make([]*domain.Acquisition, 0, len(ids))
	if len(ids) == 0 {
		return acquisitions, nil, nil
	}
	sort.Strings(ids)

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, AcquisitionKey(id))
	}
	// Exec reports the first failed command; per-command errors are inspected below.
	_, _ = pipe.Exec(ctx)

	var skipped []string
	for i, cmd := range cmds {
		if err := cmd.Err(); err != nil {
			var reply redis.Error
			if errors.As(err, &reply) {
				// Server rejected this key (ex: WRONGTYPE), treat as malformed.
				skipped = append(skipped, ids[i])
				continue
			}
			return nil, nil, storeErr("list acquisitions", err)
		}
		vals := cmd.Val()
		if len(vals) == 0 {
			skipped = append(skipped, ids[i])
			continue
		}
		a, err := decode(vals)
		if err != nil {
			skipped = append(skipped, ids[i])
			continue
		}
		acquisitions = append(acquisitions, a)
	}

	return acquisitions, skipped, nil
}

// Update writes only the patched fields of an existing acquisition
func (s *Store) Update(ctx context.Context, id string, patch domain.Patch) error {
	if s.client == nil {
		return domain.ErrUnavailable
	}

	args, err := encodePatch(patch)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		n, err := s.client.Exists(ctx, AcquisitionKey(id)).Result()
		if err != nil {
			return storeErr("update acquisition", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil
	}

	applied, err := updateScript.Run(ctx, s.client, []string{AcquisitionKey(id)}, args...).Int()
	if err != nil {
		return storeErr("update acquisition", err)
	}
	if applied == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

// Delete removes an acquisition and its index entry
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.client == nil {
		return domain.ErrUnavailable
	}

	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, AcquisitionKey(id))
		pipe.SRem(ctx, AllAcquisitionsKey(), id)
		return nil
	})
	if err != nil {
		return storeErr("delete acquisition", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
}

func encode(a *domain.Acquisition) (map[string]interface{}, error) {
	tags, err := encodeTags(a.Tags)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		fieldID:           a.ID,
		fieldName:         a.Name,
		fieldDescription:  a.Description,
		fieldImageURL:     a.ImageURL,
		fieldDateAcquired: domain.FormatDate(a.DateAcquired),
		fieldSource:       a.Source,
		fieldTags:         tags,
	}, nil
}

func encodePatch(p domain.Patch) ([]interface{}, error) {
	var args []interface{}
	add := func(field, value string) { args = append(args, field, value) }

	if p.Name != nil {
		add(fieldName, *p.Name)
	}
	if p.Description != nil {
		add(fieldDescription, *p.Description)
	}
	if p.ImageURL != nil {
		add(fieldImageURL, *p.ImageURL)
	}
	if p.DateAcquired != nil {
		add(fieldDateAcquired, domain.FormatDate(*p.DateAcquired))
	}
	if p.Source != nil {
		add(fieldSource, *p.Source)
	}
	if p.Tags != nil {
		tags, err := encodeTags(*p.Tags)
		if err != nil {
			return nil, err
		}
		add(fieldTags, tags)
	}
	return args, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(data), nil
}

func decode(vals map[string]string) (*domain.Acquisition, error) {
	for _, required := range []string{fieldID, fieldName, fieldDateAcquired} {
		if vals[required] == "" {
			return nil, fmt.Errorf("%w: missing %s", domain.ErrMalformedRecord, required)
		}
	}

	date, err := time.Parse(time.RFC3339Nano, vals[fieldDateAcquired])
	if err != nil {
		return nil, fmt.Errorf("%w: dateAcquired: %w", domain.ErrMalformedRecord, err)
	}

	tags := []string{}
	if raw := vals[fieldTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, fmt.Errorf("%w: tags: %w", domain.ErrMalformedRecord, err)
		}
		if tags == nil {
			tags = []string{}
		}
	}

	return &domain.Acquisition{
		ID:           vals[fieldID],
		Name:         vals[fieldName],
		Description:  vals[fieldDescription],
		ImageURL:     vals[fieldImageURL],
		DateAcquired: date.UTC(),
		Source:       vals[fieldSource],
		Tags:         tags,
	}, nil
}
