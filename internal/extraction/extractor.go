package extraction

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/firecrawl"
)

// Prompt is the instruction sent with every extract job.
const Prompt = "Extract the company name, contact telephone/phone number, and contact email address"

// ContactSchema is the JSON schema of the extract job output.
var ContactSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"company_name": map[string]any{
			"type":        "string",
			"description": "The name of the company",
		},
		"telephone": map[string]any{
			"type":        "string",
			"description": "The contact telephone or phone number",
		},
		"contact_email": map[string]any{
			"type":        "string",
			"description": "The contact email address",
		},
	},
	"required": []string{"company_name"},
}

// Extractor pulls contact details from a web page.
type Extractor interface {
	Extract(ctx context.Context, url string) (model.Contact, error)
}

// FirecrawlExtractor runs Firecrawl extract jobs.
type FirecrawlExtractor struct {
	client firecrawl.Client
	opts   []firecrawl.PollOption
}

// NewFirecrawlExtractor creates an extractor. Poll options tune how the job
// status is polled; the caller bounds total time through ctx.
func NewFirecrawlExtractor(client firecrawl.Client, opts ...firecrawl.PollOption) *FirecrawlExtractor {
	return &FirecrawlExtractor{client: client, opts: opts}
}

// Extract starts an extract job for url and decodes the contact fields.
func (f *FirecrawlExtractor) Extract(ctx context.Context, url string) (model.Contact, error) {
	res, err := firecrawl.Extract(ctx, f.client, firecrawl.ExtractRequest{
		URLs:   []string{url},
		Prompt: Prompt,
		Schema: ContactSchema,
	}, f.opts...)
	if err != nil {
		return model.Contact{}, eris.Wrapf(err, "extraction: extract %s", url)
	}

	var c model.Contact
	if err := res.DecodeData(&c); err != nil {
		return model.Contact{}, eris.Wrapf(err, "extraction: decode %s", url)
	}
	return c.Trimmed(), nil
}
