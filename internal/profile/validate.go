package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a record that entered from outside the process (seed file,
// remote source). Blank skills and collaborations are rejected alongside the
// struct tag rules.
func Validate(ctx context.Context, p Profile) error {
	if err := validate.StructCtx(ctx, p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid profile: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("validating profile: %w", err)
	}
	for i, s := range p.Skills {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("invalid profile: skills[%d] is blank", i)
		}
	}
	for i, c := range p.Collaborations {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("invalid profile: collaborations[%d] is blank", i)
		}
	}
	return nil
}
