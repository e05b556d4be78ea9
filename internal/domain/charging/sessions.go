package charging

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
)

// SessionInput is one charging session submitted as structured data.
type SessionInput struct {
	Date            *time.Time `json:"date" validate:"required"`
	EnergyKWh       float64    `json:"energy_kwh" validate:"gt=0"`
	Cost            float64    `json:"cost" validate:"gte=0"`
	Location        *string    `json:"location,omitempty"`
	ChargerType     *string    `json:"charger_type,omitempty"`
	DurationMinutes *float64   `json:"duration_minutes,omitempty" validate:"omitempty,gte=0"`
	StartSOC        *float64   `json:"start_soc,omitempty" validate:"omitempty,gte=0,lte=100"`
	EndSOC          *float64   `json:"end_soc,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateSessions checks every session and reports all invalid fields.
func ValidateSessions(v *validator.Validate, sessions []SessionInput) error {
	if len(sessions) == 0 {
		return ErrNoSessions
	}

	var fields []FieldError
	for i := range sessions {
		err := v.Struct(&sessions[i])
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate session %d: %w", i, err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("sessions[%d].%s", i, fe.Field()),
				Message: describe(fe),
			})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// SessionsTable maps structured sessions onto the canonical table. Optional
// columns are present when at least one session carries them.
func SessionsTable(sessions []SessionInput) *normalizer.Table {
	table := &normalizer.Table{
		Columns:  []string{normalizer.ColSessionDate, normalizer.ColEnergyAddedKWh, normalizer.ColTotalCost},
		Sessions: make([]normalizer.Session, 0, len(sessions)),
	}

	var hasLocation, hasCharger, hasDuration, hasStart, hasEnd bool
	for _, in := range sessions {
		s := normalizer.Session{
			EnergyAddedKWh:          in.EnergyKWh,
			TotalCost:               in.Cost,
			LocationName:            trimmed(in.Location),
			ChargerType:             trimmed(in.ChargerType),
			ChargingDurationMinutes: in.DurationMinutes,
			StartSOCPercent:         in.StartSOC,
			EndSOCPercent:           in.EndSOC,
		}
		if in.Date != nil {
			d := in.Date.UTC()
			s.SessionDate = &d
		}
		hasLocation = hasLocation || s.LocationName != nil
		hasCharger = hasCharger || s.ChargerType != nil
		hasDuration = hasDuration || s.ChargingDurationMinutes != nil
		hasStart = hasStart || s.StartSOCPercent != nil
		hasEnd = hasEnd || s.EndSOCPercent != nil
		table.Sessions = append(table.Sessions, s)
	}

	for _, opt := range []struct {
		present bool
		column  string
	}{
		{hasLocation, normalizer.ColLocationName},
		{hasCharger, normalizer.ColChargerType},
		{hasDuration, normalizer.ColChargingDurationMinutes},
		{hasStart, normalizer.ColStartSOCPercent},
		{hasEnd, normalizer.ColEndSOCPercent},
	} {
		if opt.present {
			table.Columns = append(table.Columns, opt.column)
		}
	}
	return table
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
