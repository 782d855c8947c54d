package cart

import (
	"maps"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/mixandtaste/internal/domain/customization"
)

// SnapshotVersion is the current snapshot encoding version.
const SnapshotVersion = 1

// Snapshot is the persisted form of a cart.
type Snapshot struct {
	Version   int
	Merge     MergePolicy
	Lines     []Line
	UpdatedAt time.Time
}

// Snapshot captures the cart contents.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Merge:   c.merge,
		Lines:   c.Lines(),
	}
}

// Restore replaces the cart contents with the snapshot lines. Lines with a
// non-positive quantity are dropped and quantities are capped at
// MaxQuantity. The cart keeps its own merge policy; restored lines are
// re-keyed when the snapshot used a different one.
func (c *Cart) Restore(s Snapshot) {
	c.lines = c.lines[:0]
	for _, l := range s.Lines {
		if l.Quantity <= 0 {
			continue
		}
		l = l.clone()
		l.Quantity = min(l.Quantity, MaxQuantity)
		if s.Merge != c.merge {
			l.ID = c.merge.LineID(l.ProductID, l.Options)
		}
		if i := c.index(l.ID); i >= 0 {
			c.lines[i].Quantity = min(c.lines[i].Quantity+l.Quantity, MaxQuantity)
			continue
		}
		c.lines = append(c.lines, l)
	}
}

// ErrSnapshotVersion is returned when decoding a snapshot written by a newer
// encoder.
var ErrSnapshotVersion = errors.New("unsupported cart snapshot version")

// EncodeSnapshot writes s as JSON. Amounts are encoded as strings.
func EncodeSnapshot(s Snapshot) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("v")
	e.Int(SnapshotVersion)
	e.FieldStart("merge")
	e.Str(s.Merge.String())
	if !s.UpdatedAt.IsZero() {
		e.FieldStart("updated_at")
		e.Str(s.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range s.Lines {
		encodeLine(&e, l)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func encodeLine(e *jx.Encoder, l Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(l.ID)
	e.FieldStart("product_id")
	e.Str(l.ProductID)
	e.FieldStart("name")
	e.ObjStart()
	e.FieldStart("ar")
	e.Str(l.Name.AR)
	e.FieldStart("en")
	e.Str(l.Name.EN)
	e.ObjEnd()
	if l.Image != "" {
		e.FieldStart("image")
		e.Str(l.Image)
	}
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unit_total")
	e.Str(l.UnitTotal.String())
	if len(l.Options) > 0 {
		e.FieldStart("options")
		e.ObjStart()
		for _, t := range slices.Sorted(maps.Keys(l.Options)) {
			e.FieldStart(string(t))
			e.Str(l.Options[t])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
}

// DecodeSnapshot parses a snapshot written by EncodeSnapshot. Unknown fields
// are skipped.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "v":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "version")
			}
			if v > SnapshotVersion {
				return errors.Wrapf(ErrSnapshotVersion, "version %d", v)
			}
			s.Version = v
		case "merge":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "merge")
			}
			m, err := ParseMergePolicy(v)
			if err != nil {
				return err
			}
			s.Merge = m
		case "updated_at":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "updated_at")
			}
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return errors.Wrap(err, "updated_at")
			}
			s.UpdatedAt = ts
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return errors.Wrapf(err, "line %d", len(s.Lines))
				}
				s.Lines = append(s.Lines, l)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return Snapshot{}, errors.Wrap(err, "decode cart snapshot")
	}
	return s, nil
}

func decodeLine(d *jx.Decoder) (Line, error) {
	var l Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			l.ID, err = d.Str()
		case "product_id":
			l.ProductID, err = d.Str()
		case "name":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "ar":
					l.Name.AR, err = d.Str()
				case "en":
					l.Name.EN, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		case "image":
			l.Image, err = d.Str()
		case "quantity":
			l.Quantity, err = d.Int()
		case "unit_total":
			var v string
			if v, err = d.Str(); err != nil {
				return errors.Wrap(err, key)
			}
			l.UnitTotal, err = decimal.NewFromString(v)
		case "options":
			l.Options = make(map[customization.OptionType]string)
			err = d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				l.Options[customization.OptionType(key)] = v
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return Line{}, err
	}
	if l.ProductID == "" {
		return Line{}, errors.New("product_id is required")
	}
	if l.ID == "" {
		l.ID = l.ProductID
	}
	return l, nil
}
