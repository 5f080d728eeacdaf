// Package identity reduces the many spellings of a teacher identifier to one TeacherID.
package identity

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/sheet"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

// Resolve converts an integer, an integral float, a digit string, a json.Number or a
// spreadsheet cell holding one of those into a TeacherID. Anything else fails with
// INVALID_IDENTIFIER. Resolve(Resolve(x)) == Resolve(x).
func Resolve(value interface{}) (models.TeacherID, error) {
	switch v := value.(type) {
	case nil:
		return 0, invalid(value, "value is null")
	case models.TeacherID:
		return fromInt(int64(v), value)
	case int:
		return fromInt(int64(v), value)
	case int8:
		return fromInt(int64(v), value)
	case int16:
		return fromInt(int64(v), value)
	case int32:
		return fromInt(int64(v), value)
	case int64:
		return fromInt(v, value)
	case uint:
		return fromUint(uint64(v), value)
	case uint8:
		return fromUint(uint64(v), value)
	case uint16:
		return fromUint(uint64(v), value)
	case uint32:
		return fromUint(uint64(v), value)
	case uint64:
		return fromUint(v, value)
	case float32:
		return fromFloat(float64(v), value)
	case float64:
		return fromFloat(v, value)
	case string:
		return fromString(v, value)
	case json.Number:
		return fromString(v.String(), value)
	case sheet.Cell:
		return fromCell(v)
	default:
		return 0, invalid(value, fmt.Sprintf("unsupported type %T", value))
	}
}

func fromCell(c sheet.Cell) (models.TeacherID, error) {
	switch c.Kind() {
	case sheet.KindNumber:
		n, _ := c.AsNumber()
		return fromFloat(n, c.String())
	case sheet.KindText:
		s, _ := c.AsText()
		return fromString(s, s)
	case sheet.KindEmpty:
		return 0, invalid(nil, "value is null")
	default:
		return 0, invalid(c.String(), "dates are not identifiers")
	}
}

func fromInt(n int64, original interface{}) (models.TeacherID, error) {
	if n < 0 {
		return 0, invalid(original, "identifier is negative")
	}
	return models.TeacherID(n), nil
}

func fromUint(n uint64, original interface{}) (models.TeacherID, error) {
	if n > math.MaxInt64 {
		return 0, invalid(original, "identifier overflows")
	}
	return models.TeacherID(n), nil
}

func fromFloat(f float64, original interface{}) (models.TeacherID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(original, "value is not a finite number")
	}
	if f != math.Trunc(f) {
		return 0, invalid(original, "value has a fractional part")
	}
	if f < 0 || f > math.MaxInt64 {
		return 0, invalid(original, "identifier out of range")
	}
	return models.TeacherID(int64(f)), nil
}

func fromString(s string, original interface{}) (models.TeacherID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, invalid(original, "value is not an integer")
	}
	return fromInt(n, original)
}

func invalid(value interface{}, reason string) error {
	return appErrors.Clone(appErrors.ErrInvalidIdentifier, fmt.Sprintf("invalid teacher identifier %v: %s", value, reason))
}

// NormalizeKeys resolves every key of m. Keys that fail to resolve, or that resolve to an
// id already taken by an earlier key, are dropped and reported; the rest are kept.
// Keys are visited in the order of their string form, then type name.
func NormalizeKeys[K comparable, V any](m map[K]V, logger *zap.Logger) (map[models.TeacherID]V, []models.ItemFailure) {
	if logger == nil {
		logger = zap.NewNop()
	}
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keyString(keys[i]), keyString(keys[j])
		if a != b {
			return a < b
		}
		return fmt.Sprintf("%T", keys[i]) < fmt.Sprintf("%T", keys[j])
	})

	out := make(map[models.TeacherID]V, len(m))
	var failures []models.ItemFailure
	for _, k := range keys {
		label := keyString(k)
		id, err := Resolve(k)
		if err != nil {
			appErr := appErrors.FromError(err)
			logger.Warn("dropping assignment key", zap.String("key", label), zap.Error(err))
			failures = append(failures, models.ItemFailure{Item: label, Code: appErr.Code, Reason: appErr.Message})
			continue
		}
		if _, taken := out[id]; taken {
			logger.Warn("dropping duplicate assignment key", zap.String("key", label), zap.Int64("teacher_id", int64(id)))
			failures = append(failures, models.ItemFailure{
				Item:   label,
				Code:   appErrors.ErrConflict.Code,
				Reason: fmt.Sprintf("key %s duplicates teacher %d", label, int64(id)),
			})
			continue
		}
		out[id] = m[k]
	}
	return out, failures
}

func keyString(k interface{}) string {
	if c, ok := k.(sheet.Cell); ok {
		return c.String()
	}
	return fmt.Sprintf("%v", k)
}
