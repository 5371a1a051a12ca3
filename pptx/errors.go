package pptx

import (
	"fmt"

	"auto_ppt_generator/outline"
)

// UnsafeArchiveError reports an archive that failed structural validation.
// Limit names the violated bound: "format", "entries", "member_size",
// "total_size", "entry_name", "required_part" or "declared_size".
type UnsafeArchiveError struct {
	Limit  string
	Detail string
}

func (e *UnsafeArchiveError) Error() string {
	return fmt.Sprintf("unsafe archive (%s): %s", e.Limit, e.Detail)
}

func unsafeArchive(limit, format string, args ...any) error {
	return &UnsafeArchiveError{Limit: limit, Detail: fmt.Sprintf(format, args...)}
}

// InvalidTemplateError reports a safe archive without a usable theme or
// layout set.
type InvalidTemplateError struct {
	Reason string
}

func (e *InvalidTemplateError) Error() string {
	return "invalid template: " + e.Reason
}

func invalidTemplate(format string, args ...any) error {
	return &InvalidTemplateError{Reason: fmt.Sprintf(format, args...)}
}

// LayoutFallback records a slide whose hint had no matching layout. It is
// informational; assembly carries on with the substitute.
type LayoutFallback struct {
	Slide  int
	Hint   outline.LayoutHint
	Layout string
}

func (f LayoutFallback) String() string {
	return fmt.Sprintf("slide %d: no %s layout, used %q", f.Slide+1, f.Hint, f.Layout)
}
