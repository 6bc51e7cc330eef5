package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/brochurebot/internal/runtime"
)

func testRef(t *testing.T, raw string) domain.TenantRef {
	t.Helper()
	id, err := domain.NewTenantID(raw)
	require.NoError(t, err)
	return domain.NewTenantRef(id, "")
}

func newTestRuntime(embedder *mocks.MockEmbeddingService, llm *mocks.MockLLMService) *runtime.Services {
	services := runtime.NewServices(domain.NewRuntimeConfig("redis", "chromem"))
	if embedder != nil {
		services.SetEmbeddingService(domain.AIProviderGemini, embedder)
	}
	if llm != nil {
		services.SetLLMService(llm)
	}
	return services
}

// brochurePages is a three page venue brochure
func brochurePages() []domain.Page {
	return []domain.Page{
		{Number: 1, Text: "Welcome to the Grand Hall, a riverside venue for weddings and conferences."},
		{Number: 2, Text: "Capacity: 200 guests seated, 350 standing for evening receptions."},
		{Number: 3, Text: "Catering is provided in-house with seasonal menus and a full bar."},
	}
}
