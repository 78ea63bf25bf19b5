package extract

import "testing"

func TestSanitize_Defaults(t *testing.T) {
	rec := Sanitize(nil)
	if rec.Company != UnknownCompany {
		t.Errorf("Company = %q, want %q", rec.Company, UnknownCompany)
	}
	if rec.Status != StatusUnknown {
		t.Errorf("Status = %q, want %q", rec.Status, StatusUnknown)
	}

	rec = Sanitize(map[string]any{})
	if rec.Company != UnknownCompany || rec.Status != StatusUnknown {
		t.Errorf("empty map: got %+v", rec)
	}
}

func TestSanitize_AlternateFieldNames(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]any
		want   Record
	}{
		{
			name: "canonical names",
			fields: map[string]any{
				"company_name": "Acme",
				"position":     "Backend Engineer",
				"status":       "INTERVIEW",
				"summary":      "scheduled a call",
			},
			want: Record{Company: "Acme", Position: "Backend Engineer", Status: StatusInterview, Summary: "scheduled a call"},
		},
		{
			name: "alternates",
			fields: map[string]any{
				"employer":    "Initech",
				"role":        "SRE",
				"status":      "applied",
				"description": "confirmation",
				"next_steps":  "wait",
			},
			want: Record{Company: "Initech", Position: "SRE", Status: StatusApplied, Summary: "confirmation", NextStep: "wait"},
		},
		{
			name: "company over employer",
			fields: map[string]any{
				"company":  "Globex",
				"job_title": "Data Engineer",
			},
			want: Record{Company: "Globex", Position: "Data Engineer", Status: StatusUnknown},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.fields)
			if got != tc.want {
				t.Errorf("Sanitize() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSanitize_StatusCoercion(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"rejected", StatusRejected},
		{"Offer", StatusOffer},
		{" INTERVIEW ", StatusInterview},
		{"nonsense", StatusUnknown},
		{"", StatusUnknown},
	}

	for _, tc := range cases {
		rec := Sanitize(map[string]any{"status": tc.raw})
		if rec.Status != tc.want {
			t.Errorf("status %q: got %q, want %q", tc.raw, rec.Status, tc.want)
		}
	}
}

func TestSanitize_RejectionFlag(t *testing.T) {
	rec := Sanitize(map[string]any{"status": "REJECTED"})
	if !rec.IsRejection {
		t.Error("REJECTED status must set IsRejection")
	}

	rec = Sanitize(map[string]any{"status": "APPLIED", "is_rejection": true})
	if !rec.IsRejection {
		t.Error("explicit is_rejection must be preserved")
	}
}

func TestSanitize_NonStringValues(t *testing.T) {
	// Providers occasionally hand back numbers or nulls; they are ignored.
	rec := Sanitize(map[string]any{
		"company_name": 42,
		"position":     nil,
		"status":       true,
	})
	if rec.Company != UnknownCompany {
		t.Errorf("Company = %q, want %q", rec.Company, UnknownCompany)
	}
	if rec.Position != "" {
		t.Errorf("Position = %q, want empty", rec.Position)
	}
	if rec.Status != StatusUnknown {
		t.Errorf("Status = %q, want %q", rec.Status, StatusUnknown)
	}
}
