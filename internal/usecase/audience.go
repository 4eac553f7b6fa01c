package usecase

import (
	"context"
	"strings"

	"signflow/internal/domain"
)

// StaticAudience resolves the completion audience from a fixed address
// list, typically configured per deployment.
type StaticAudience struct {
	Addresses []string
}

func NewStaticAudience(csv string) StaticAudience {
	var addrs []string
	for _, part := range strings.Split(csv, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		addrs = append(addrs, trimmed)
	}
	return StaticAudience{Addresses: addrs}
}

func (a StaticAudience) CompletionAudience(_ context.Context, _ domain.Document) []string {
	return a.Addresses
}
