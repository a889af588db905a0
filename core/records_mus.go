package core

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// snapshotFormat is bumped whenever the wire layout below changes.
const snapshotFormat uint64 = 1

// SnapshotMUS serializes a Snapshot in MUS format.
var SnapshotMUS = snapshotMUS{}

// CategoryMUS serializes a single Category in MUS format.
var CategoryMUS = categoryMUS{}

type snapshotMUS struct{}

func (snapshotMUS) Marshal(v Snapshot, bs []byte) (n int) {
	n = varint.Uint64.Marshal(snapshotFormat, bs)
	n += ord.String.Marshal(v.Key, bs[n:])
	n += ord.String.Marshal(v.ModelID, bs[n:])
	n += ord.String.Marshal(v.TaxonomyVersion, bs[n:])
	n += varint.Int64.Marshal(v.RefreshedAt.UnixMicro(), bs[n:])
	n += ord.Bool.Marshal(v.Degraded, bs[n:])
	n += varint.Uint64.Marshal(uint64(len(v.Categories)), bs[n:])
	for _, c := range v.Categories {
		n += CategoryMUS.Marshal(c, bs[n:])
	}
	return n
}

func (snapshotMUS) Unmarshal(bs []byte) (v Snapshot, n int, err error) {
	format, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	if format != snapshotFormat {
		err = fmt.Errorf("%w: unknown snapshot format %d", ErrMalformedRecord, format)
		return
	}
	var n1 int
	if v.Key, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ModelID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.TaxonomyVersion, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	micros, n1, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return
	}
	n += n1
	v.RefreshedAt = time.UnixMicro(micros).UTC()
	if v.Degraded, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	count, n1, err := varint.Uint64.Unmarshal(bs[n:])
	if err != nil {
		return
	}
	n += n1
	// each category takes at least one byte
	if count > uint64(len(bs)-n) {
		err = fmt.Errorf("%w: category count %d exceeds payload", ErrMalformedRecord, count)
		return
	}
	v.Categories = make([]Category, 0, count)
	for i := uint64(0); i < count; i++ {
		var c Category
		if c, n1, err = CategoryMUS.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		v.Categories = append(v.Categories, c)
	}
	return
}

func (snapshotMUS) Size(v Snapshot) (size int) {
	size = varint.Uint64.Size(snapshotFormat)
	size += ord.String.Size(v.Key)
	size += ord.String.Size(v.ModelID)
	size += ord.String.Size(v.TaxonomyVersion)
	size += varint.Int64.Size(v.RefreshedAt.UnixMicro())
	size += ord.Bool.Size(v.Degraded)
	size += varint.Uint64.Size(uint64(len(v.Categories)))
	for _, c := range v.Categories {
		size += CategoryMUS.Size(c)
	}
	return size
}

func (s snapshotMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type categoryMUS struct{}

func (categoryMUS) Marshal(v Category, bs []byte) (n int) {
	n = ord.String.Marshal(v.Code, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += varint.Uint64.Marshal(uint64(len(v.Embedding)), bs[n:])
	for _, f := range v.Embedding {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (categoryMUS) Unmarshal(bs []byte) (v Category, n int, err error) {
	if v.Code, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var n1 int
	if v.Name, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	dims, n1, err := varint.Uint64.Unmarshal(bs[n:])
	if err != nil {
		return
	}
	n += n1
	if dims == 0 {
		return
	}
	width := raw.Float32.Size(0)
	if dims > uint64((len(bs)-n)/width) {
		err = fmt.Errorf("%w: embedding of %d dims exceeds payload", ErrMalformedRecord, dims)
		return
	}
	v.Embedding = make([]float32, dims)
	for i := range v.Embedding {
		if v.Embedding[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}
	return
}

func (categoryMUS) Size(v Category) (size int) {
	size = ord.String.Size(v.Code)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Description)
	size += varint.Uint64.Size(uint64(len(v.Embedding)))
	return size + len(v.Embedding)*raw.Float32.Size(0)
}

func (c categoryMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = c.Unmarshal(bs)
	return
}
