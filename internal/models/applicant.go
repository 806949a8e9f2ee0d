package models

// Applicant maps verification-relevant field names (name, address, phone,
// document-derived PII) to their values. An applicant snapshot is immutable
// once submitted to a vendor stage; callers derive new snapshots instead of
// mutating one in flight.
type Applicant map[string]string

// Clone returns an independent copy of the applicant data.
func (a Applicant) Clone() Applicant {
	out := make(Applicant, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// With returns a copy of the applicant with the given fields set.
func (a Applicant) With(fields map[string]string) Applicant {
	out := a.Clone()
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Phone returns the applicant's phone field, empty if absent.
func (a Applicant) Phone() string {
	return a["phone"]
}
