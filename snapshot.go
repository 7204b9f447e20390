package medvox

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/segmentio/encoding/json"

	"github.com/gchahal1982/medvox/blobstore"
	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
)

// Snapshot wire layout: 4-byte magic, version byte, compression byte, payload.
// The payload is a JSON envelope of the registry contents; structures are not
// serialized, Restore rebuilds them by reinserting every object.
const (
	snapshotMagic   = "MVOX"
	snapshotVersion = 1

	compressionNone = 0
	compressionZstd = 1
)

type snapshotEnvelope struct {
	Kind    string            `json:"kind"`
	Bounds  geom.AABB         `json:"bounds"`
	Objects []snapshotObj `json:"objects"`
}

// snapshotObj mirrors object.SpatialObject with the payload carried as a
// tagged raw message, since payloads are excluded from the object's own JSON
// form.
type snapshotObj struct {
	Object  *object.SpatialObject `json:"object"`
	Payload json.RawMessage       `json:"payload,omitempty"`
}

// Snapshot serializes the registry contents to store under name. The payload
// is zstd-compressed when the index was built with a positive compression
// level, mapped to the corresponding zstd level.
func (idx *Index) Snapshot(ctx context.Context, store blobstore.Store, name string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureOpen()

	objs := idx.registry.All()
	env := snapshotEnvelope{
		Kind:    idx.kind.String(),
		Bounds:  idx.bounds,
		Objects: make([]snapshotObj, 0, len(objs)),
	}
	for _, o := range objs {
		raw, err := object.MarshalPayload(o.Payload)
		if err != nil {
			idx.logger.LogSnapshot(name, len(objs), err)
			return fmt.Errorf("medvox: marshal payload of %q: %w", o.ID, err)
		}
		env.Objects = append(env.Objects, snapshotObj{Object: o, Payload: raw})
	}

	payload, err := json.Marshal(env)
	if err != nil {
		idx.logger.LogSnapshot(name, len(objs), err)
		return fmt.Errorf("medvox: marshal snapshot: %w", err)
	}

	compression := byte(compressionNone)
	if idx.compressionLevel > 0 {
		compression = compressionZstd
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(idx.compressionLevel)))
		if err != nil {
			return fmt.Errorf("medvox: init compressor: %w", err)
		}
		payload = enc.EncodeAll(payload, nil)
		enc.Close()
	}

	blob := make([]byte, 0, len(snapshotMagic)+2+len(payload))
	blob = append(blob, snapshotMagic...)
	blob = append(blob, snapshotVersion, compression)
	blob = append(blob, payload...)

	if err := store.Put(ctx, name, blob); err != nil {
		idx.logger.LogSnapshot(name, len(objs), err)
		return fmt.Errorf("medvox: write snapshot: %w", err)
	}

	idx.logger.LogSnapshot(name, len(objs), nil)
	return nil
}

// Restore builds a fresh Index from b and repopulates it from the snapshot
// stored under name. The builder's bounds must cover the snapshotted objects;
// an object the new index rejects fails the restore.
func Restore(ctx context.Context, store blobstore.Store, name string, b Builder) (*Index, error) {
	blob, err := store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("medvox: read snapshot: %w", err)
	}

	env, err := decodeSnapshot(blob)
	if err != nil {
		return nil, err
	}

	idx, err := b.Build()
	if err != nil {
		return nil, err
	}

	for _, so := range env.Objects {
		o := so.Object
		if o == nil {
			idx.Close()
			return nil, fmt.Errorf("%w: missing object", ErrSnapshotCorrupt)
		}
		if len(so.Payload) > 0 {
			p, err := object.UnmarshalPayload(o.Type, so.Payload)
			if err != nil {
				idx.Close()
				return nil, fmt.Errorf("%w: payload of %q: %v", ErrSnapshotCorrupt, o.ID, err)
			}
			o.Payload = p
		}
		if !idx.Insert(o) {
			idx.Close()
			return nil, fmt.Errorf("medvox: restore: index rejected object %q", o.ID)
		}
	}

	idx.logger.LogRestore(name, len(env.Objects), nil)
	return idx, nil
}

func decodeSnapshot(blob []byte) (*snapshotEnvelope, error) {
	if len(blob) < len(snapshotMagic)+2 || string(blob[:len(snapshotMagic)]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrSnapshotCorrupt)
	}
	version := blob[len(snapshotMagic)]
	compression := blob[len(snapshotMagic)+1]
	payload := blob[len(snapshotMagic)+2:]

	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrSnapshotCorrupt, version)
	}

	switch compression {
	case compressionNone:
	case compressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("medvox: init decompressor: %w", err)
		}
		payload, err = dec.DecodeAll(payload, nil)
		dec.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", ErrSnapshotCorrupt, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrSnapshotCorrupt, compression)
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	return &env, nil
}
