package native

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
)

// FieldOutcome reports what happened to one field during payload building.
type FieldOutcome struct {
	Property string         `json:"property"`
	Outcome  schema.Outcome `json:"outcome"`
}

// PayloadBuilder converts annotated fields into a create or patch payload.
type PayloadBuilder struct {
	cfg Config
}

// NewPayloadBuilder creates a PayloadBuilder using cfg.
func NewPayloadBuilder(cfg Config) *PayloadBuilder {
	return &PayloadBuilder{cfg: cfg}
}

// Build encodes fields into a payload whose parent is databaseID. Fields
// with an unsupported column type or an unknown column are omitted from the
// payload and reported in the returned outcomes.
func (b *PayloadBuilder) Build(databaseID string, fields []schema.AnnotatedField) (remote.Payload, []FieldOutcome, error) {
	payload := remote.Payload{
		Parent:     &remote.Parent{DatabaseID: databaseID},
		Properties: make(map[string]remote.Property, len(fields)),
	}
	outcomes := make([]FieldOutcome, 0, len(fields))

	for _, f := range fields {
		outcome := f.Outcome
		if outcome == schema.Mapped && !b.cfg.Supports(f.Type) {
			outcome = schema.Dropped
		}
		outcomes = append(outcomes, FieldOutcome{Property: f.Property, Outcome: outcome})
		if outcome != schema.Mapped {
			continue
		}

		prop, err := b.encode(f.Type, f.Value)
		if err != nil {
			return remote.Payload{}, nil, fmt.Errorf("property %q: %w", f.Property, err)
		}
		payload.Properties[f.Property] = prop
	}

	return payload, outcomes, nil
}

// maxExactInteger is the largest integer a float64 number property holds
// without rounding.
const maxExactInteger = 1 << 53

func (b *PayloadBuilder) encode(columnType string, v ir.IRValue) (remote.Property, error) {
	if b.cfg.isNumber(columnType) {
		n, err := integerValue(v)
		if err != nil {
			return remote.Property{}, err
		}
		if n > maxExactInteger || n < -maxExactInteger {
			return remote.Property{}, fmt.Errorf("%w: %d cannot be stored exactly as a number (limit ±2^53)", ErrInvalidValue, n)
		}
		f := float64(n)
		return remote.Property{Number: &f}, nil
	}

	runs := []remote.RichText{remote.TextRun(ir.Text(v))}
	if columnType == remote.TypeTitle {
		return remote.Property{Title: runs}, nil
	}
	return remote.Property{RichText: runs}, nil
}

func integerValue(v ir.IRValue) (int64, error) {
	switch val := v.(type) {
	case ir.IRInt:
		return int64(val), nil
	case ir.IRString:
		n, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, string(val))
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T is not an integer", ErrInvalidValue, v)
	}
}

// WithoutParent returns a copy of p with the parent reference removed, the
// shape used for patch calls.
func WithoutParent(p remote.Payload) remote.Payload {
	p.Parent = nil
	return p
}

// ArchivePayload returns the patch body that archives a record.
func ArchivePayload() remote.Payload {
	archived := true
	return remote.Payload{Archived: &archived}
}
