package aggregation

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/timeparse"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

// RawRef is a slot reference as written in an index document.
type RawRef struct {
	Date   string `json:"date" yaml:"date"`
	Time   string `json:"time" yaml:"time"`
	Seance string `json:"seance" yaml:"seance"`
}

// RawIndex is an externally supplied assignment index: teacher key, then role, then references.
// Keys are loosely typed and resolved through NormalizeIndex.
type RawIndex map[string]map[string][]RawRef

// ParseIndex converts a RawIndex into an AssignmentIndex. References with an unreadable
// date or an unknown seance are reported and left out; the rest of the teacher's entry is kept.
func ParseIndex(raw RawIndex, logger *zap.Logger) (models.AssignmentIndex, []models.ItemFailure) {
	if logger == nil {
		logger = zap.NewNop()
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	typed := make(map[string]models.RoleAssignments, len(raw))
	var failures []models.ItemFailure
	for _, key := range keys {
		roles := models.RoleAssignments{}
		for _, role := range sortedRoles(raw[key]) {
			r := models.Role(strings.ToLower(strings.TrimSpace(role)))
			for i, in := range raw[key][role] {
				ref, err := parseRef(in)
				if err != nil {
					item := fmt.Sprintf("%s/%s[%d]", key, r, i)
					logger.Warn("assignment reference dropped", zap.String("item", item), zap.Error(err))
					failures = append(failures, models.ItemFailure{Item: item, Code: appErrors.ErrValidation.Code, Reason: err.Error()})
					continue
				}
				roles[r] = append(roles[r], ref)
			}
		}
		typed[key] = roles
	}

	index, keyFailures := NormalizeIndex(typed, logger)
	return index, append(failures, keyFailures...)
}

// sortedRoles orders role names as written so merged spellings and failures are stable.
func sortedRoles(roles map[string][]RawRef) []string {
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseRef(in RawRef) (models.SlotRef, error) {
	date := timeparse.ParseDateString(in.Date)
	if !date.OK {
		return models.SlotRef{}, fmt.Errorf("date %q is not recognised", in.Date)
	}
	seance := models.Seance(strings.ToUpper(strings.TrimSpace(in.Seance)))
	if !seance.Valid() {
		return models.SlotRef{}, fmt.Errorf("seance %q is not one of S1..S4", in.Seance)
	}
	return models.SlotRef{Date: date.Value, Time: strings.TrimSpace(in.Time), Seance: seance}, nil
}
