package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/greeting.txt
	greetingRaw string

	//go:embed template/crm_marketing.txt
	crmMarketingRaw string

	//go:embed template/crm_marketing_finalize.txt
	crmMarketingFinalizeRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Greeting             string
	CRMMarketing         string
	CRMMarketingFinalize string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Greeting:             strings.TrimSpace(greetingRaw),
		CRMMarketing:         strings.TrimSpace(crmMarketingRaw),
		CRMMarketingFinalize: strings.TrimSpace(crmMarketingFinalizeRaw),
	}
}
