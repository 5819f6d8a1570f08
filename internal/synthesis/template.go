package synthesis

import (
	"bytes"
	"os"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const defaultSystem = `You are a professional business development specialist. Based on the company website content provided, find ONE specific thing to admire about the company.`

const defaultPrompt = `Company Name: {{.CompanyName}}

Website Content:
{{.Content}}

Task:
1. Find ONE specific thing to admire about this company (their product, service, mission, innovation, achievement, etc.)
2. Write it as a single, genuine sentence (not generic, be specific based on their content)

Return a JSON object with:
{
  "admiration": "your one sentence admiration"
}`

const defaultEmail = `Hi {{.CompanyName}},


I've long admired your company. {{.Admiration}}

I am {{.SenderName}}. We specialize in providing enterprise AI services for companies or individuals in need of AI transformation. We have assisted many businesses in using AI to streamline operations, double their performance, perfectly create brand characteristics, and enhance customer engagement. I wonder if you would be interested in having a brief conversation to see how we can assist your company? Looking forward to your reply!


Best regards,
{{.SenderName}}`

// TemplateFile is the on-disk shape of a template override. Empty fields
// keep the built-in text.
type TemplateFile struct {
	System string `yaml:"system"`
	Prompt string `yaml:"prompt"`
	Email  string `yaml:"email"`
}

// Template holds the completion prompts and the outreach email body.
type Template struct {
	System     string
	SenderName string
	prompt     *template.Template
	email      *template.Template
}

type promptData struct {
	CompanyName string
	Content     string
	SenderName  string
}

type emailData struct {
	CompanyName string
	Admiration  string
	SenderName  string
}

// DefaultTemplate returns the built-in template signed by sender.
func DefaultTemplate(sender string) *Template {
	t, err := newTemplate(TemplateFile{}, sender)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTemplate reads a YAML override from path. An empty path returns the
// built-in template.
func LoadTemplate(path, sender string) (*Template, error) {
	if path == "" {
		return DefaultTemplate(sender), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "synthesis: read template %s", path)
	}
	var tf TemplateFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, eris.Wrapf(err, "synthesis: parse template %s", path)
	}
	return newTemplate(tf, sender)
}

func newTemplate(tf TemplateFile, sender string) (*Template, error) {
	if tf.System == "" {
		tf.System = defaultSystem
	}
	if tf.Prompt == "" {
		tf.Prompt = defaultPrompt
	}
	if tf.Email == "" {
		tf.Email = defaultEmail
	}
	if sender == "" {
		sender = "Jordan"
	}

	prompt, err := template.New("prompt").Option("missingkey=error").Parse(tf.Prompt)
	if err != nil {
		return nil, eris.Wrap(err, "synthesis: parse prompt template")
	}
	email, err := template.New("email").Option("missingkey=error").Parse(tf.Email)
	if err != nil {
		return nil, eris.Wrap(err, "synthesis: parse email template")
	}
	return &Template{System: tf.System, SenderName: sender, prompt: prompt, email: email}, nil
}

// Prompt renders the user message for one company.
func (t *Template) Prompt(companyName, content string) (string, error) {
	var b bytes.Buffer
	err := t.prompt.Execute(&b, promptData{CompanyName: companyName, Content: content, SenderName: t.SenderName})
	if err != nil {
		return "", eris.Wrap(err, "synthesis: render prompt")
	}
	return b.String(), nil
}

// Email renders the outreach email for one company.
func (t *Template) Email(companyName, admiration string) (string, error) {
	var b bytes.Buffer
	err := t.email.Execute(&b, emailData{CompanyName: companyName, Admiration: admiration, SenderName: t.SenderName})
	if err != nil {
		return "", eris.Wrap(err, "synthesis: render email")
	}
	return b.String(), nil
}
