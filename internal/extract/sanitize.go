package extract

import "strings"

// Sanitize repairs a loosely-typed field map returned by any provider into
// a fully-populated Record. Producers disagree on field names and status
// casing; unrecoverable fields fall back to defaults. Sanitize never fails.
func Sanitize(fields map[string]any) Record {
	rec := Record{
		Company: UnknownCompany,
		Status:  StatusUnknown,
	}
	if fields == nil {
		return rec
	}

	if v := firstString(fields, "company_name", "company", "employer"); v != "" {
		rec.Company = v
	}
	rec.Position = firstString(fields, "position", "role", "job_title", "title")
	rec.Summary = firstString(fields, "summary", "description")
	rec.NextStep = firstString(fields, "next_step", "next_steps")

	if v, ok := fields["is_rejection"].(bool); ok {
		rec.IsRejection = v
	}

	if raw := firstString(fields, "status"); raw != "" {
		s := Status(strings.ToUpper(strings.TrimSpace(raw)))
		if s.Valid() {
			rec.Status = s
		}
	}
	if rec.Status == StatusRejected {
		rec.IsRejection = true
	}

	return rec
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}
