package validations

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	pkgError "github.com/pressgen/pressgen/pkg/error"
	"github.com/pressgen/pressgen/pkg/timeutils"
)

var hhmmRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func ValidateSaveSchedule(ctx context.Context, request domainSchedule.SaveScheduleRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Frequency, validation.Required, validation.In(
			timeutils.FrequencyDaily,
			timeutils.FrequencyWeekly,
			timeutils.FrequencyBiweekly,
			timeutils.FrequencyMonthly,
		)),
		validation.Field(&request.DayOfWeek,
			validation.When(request.Frequency == timeutils.FrequencyWeekly || request.Frequency == timeutils.FrequencyBiweekly,
				validation.Required,
				validation.In("monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"),
			),
		),
		validation.Field(&request.Time, validation.Required, validation.Match(hhmmRegex).Error("must be in HH:MM format")),
		validation.Field(&request.Topic, validation.Required, validation.Length(2, 200)),
		validation.Field(&request.WordCount, validation.Min(0), validation.Max(10000)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
