package httpx

import "context"

type subjectKey struct{}

// WithSubject records the authenticated subject so request scoped helpers
// (rate limiting, logging) can key on it without knowing how it was
// authenticated.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the subject stored by WithSubject.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}
