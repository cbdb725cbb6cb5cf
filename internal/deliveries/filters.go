package deliveries

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
)

// Filters narrows a listing. Zero values mean "no constraint". From and To are
// inclusive and compared against order_date / submitted_at.
type Filters struct {
	Status    *enums.DeliveryStatus
	Source    *enums.SourceType
	BuyerID   *int64
	ArtistID  *int64
	PartnerID *int64
	From      *time.Time
	To        *time.Time
}

const dateOnlyLayout = "2006-01-02"

var filterKeys = map[string]string{
	"status":      "status",
	"requesttype": "source",
	"sourcetype":  "source",
	"source_type": "source",
	"buyerid":     "buyer",
	"buyer_id":    "buyer",
	"artistid":    "artist",
	"artist_id":   "artist",
	"partnerid":   "partner",
	"partner_id":  "partner",
	"from":        "from",
	"startdate":   "from",
	"start_date":  "from",
	"to":          "to",
	"enddate":     "to",
	"end_date":    "to",
}

// ParseFilters converts an arbitrary field to value map (typically URL query
// parameters) into Filters. Unknown fields and malformed values are rejected.
func ParseFilters(raw map[string]string) (Filters, error) {
	var f Filters
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := strings.TrimSpace(raw[key])
		if value == "" {
			continue
		}
		field, ok := filterKeys[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return Filters{}, invalidFilter(key, value, "unknown filter field")
		}
		switch field {
		case "status":
			status, err := enums.ParseDeliveryStatus(value)
			if err != nil {
				return Filters{}, invalidFilter(key, value, "invalid delivery status")
			}
			f.Status = &status
		case "source":
			source, err := enums.ParseSourceType(value)
			if err != nil {
				return Filters{}, invalidFilter(key, value, "invalid request type")
			}
			f.Source = &source
		case "buyer", "artist", "partner":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil || id <= 0 {
				return Filters{}, invalidFilter(key, value, "id must be a positive integer")
			}
			switch field {
			case "buyer":
				f.BuyerID = &id
			case "artist":
				f.ArtistID = &id
			default:
				f.PartnerID = &id
			}
		case "from":
			t, err := parseFilterTime(value, false)
			if err != nil {
				return Filters{}, invalidFilter(key, value, "invalid date")
			}
			f.From = &t
		case "to":
			t, err := parseFilterTime(value, true)
			if err != nil {
				return Filters{}, invalidFilter(key, value, "invalid date")
			}
			f.To = &t
		}
	}

	if err := f.validate(); err != nil {
		return Filters{}, err
	}
	return f, nil
}

// parseFilterTime accepts RFC3339 or a bare date. A bare upper bound covers the
// whole day.
func parseFilterTime(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}

func invalidFilter(key, value, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]any{"field": key, "value": value})
}

func (f Filters) validate() error {
	if f.Status != nil && !f.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status")
	}
	if f.Source != nil && !f.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid request type")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to").
			WithDetails(map[string]any{"from": f.From, "to": f.To})
	}
	return nil
}

// sources returns the sources a listing must query, artwork orders first.
func (f Filters) sources() []enums.SourceType {
	if f.Source != nil {
		return []enums.SourceType{*f.Source}
	}
	return enums.AllSourceTypes()
}

func (f Filters) clauses(spec sourceSpec) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		where = append(where, spec.col("delivery_status")+" IN ?")
		args = append(args, storedSpellings(*f.Status))
	}
	if f.BuyerID != nil {
		where = append(where, spec.col("buyer_id")+" = ?")
		args = append(args, *f.BuyerID)
	}
	if f.ArtistID != nil {
		where = append(where, spec.artistPredicate)
		args = append(args, *f.ArtistID)
	}
	if f.PartnerID != nil {
		where = append(where, spec.col("assigned_partner_id")+" = ?")
		args = append(args, *f.PartnerID)
	}
	if f.From != nil {
		where = append(where, spec.col(spec.timestampColumn)+" >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, spec.col(spec.timestampColumn)+" <= ?")
		args = append(args, f.To.UTC())
	}
	return where, args
}
