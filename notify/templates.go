package notify

import (
	"html/template"
	"strings"
	"time"
)

// datePT renders an ISO date as a Portuguese dd/mm/yyyy date. Values
// that do not parse are passed through unchanged.
func datePT(value string) string {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return value
}

const baseStyle = `
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #3B82F6, #10B981); color: white; padding: 20px; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 20px; border-radius: 0 0 8px 8px; }
    .button { background: #3B82F6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block; margin: 10px 0; }
    .footer { text-align: center; margin-top: 20px; color: #6b7280; font-size: 14px; }
  </style>
`

const footer = `
  <div class="footer">
    <p>EduManager - Sistema de Gestão Escolar</p>
  </div>
`

var emailTemplates = template.Must(template.New("emails").Funcs(template.FuncMap{
	"datePT": datePT,
}).Parse(`
{{define "professor_added"}}` + baseStyle + `
<div class="container">
  <div class="header">
    <h1>🎓 Novo Professor Adicionado</h1>
  </div>
  <div class="content">
    <h2>Olá!</h2>
    <p>Um novo professor foi adicionado ao sistema EduManager:</p>
    <ul>
      <li><strong>Nome:</strong> {{.Nome}}</li>
      <li><strong>Email:</strong> {{.Email}}</li>
      <li><strong>Departamento:</strong> {{.Departamento}}</li>
      <li><strong>Cargo:</strong> {{.Cargo}}</li>
    </ul>
  </div>` + footer + `
</div>
{{end}}

{{define "turma_created"}}` + baseStyle + `
<div class="container">
  <div class="header">
    <h1>📚 Nova Turma Criada</h1>
  </div>
  <div class="content">
    <h2>Nova turma disponível!</h2>
    <p>Uma nova turma foi criada no sistema:</p>
    <ul>
      <li><strong>Curso:</strong> {{.Curso}}</li>
      <li><strong>Código:</strong> {{.CodFormacao}}</li>
      <li><strong>Professor:</strong> {{.Professor}}</li>
      <li><strong>Data de Início:</strong> {{datePT .DataInicio}}</li>
    </ul>
  </div>` + footer + `
</div>
{{end}}

{{define "contacto_registered"}}` + baseStyle + `
<div class="container">
  <div class="header">
    <h1>📞 Novo Contacto Registado</h1>
  </div>
  <div class="content">
    <h2>Contacto agendado!</h2>
    <p>Um novo contacto foi registado no sistema:</p>
    <ul>
      <li><strong>Motivo:</strong> {{.Motivo}}</li>
      <li><strong>Entre:</strong> {{.Emissor}} e {{.Receptor}}</li>
      <li><strong>Data:</strong> {{datePT .Data}}</li>
      <li><strong>Hora:</strong> {{.Hora}}</li>
    </ul>
  </div>` + footer + `
</div>
{{end}}

{{define "weekly_report"}}` + baseStyle + `
<div class="container">
  <div class="header">
    <h1>📊 Relatório Semanal</h1>
  </div>
  <div class="content">
    <h2>Resumo da Semana</h2>
    <p>Aqui está o resumo das atividades desta semana:</p>
    <div style="display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr)); gap: 15px; margin: 20px 0;">
      <div style="background: white; padding: 15px; border-radius: 8px; text-align: center;">
        <h3 style="color: #3B82F6; margin: 0;">{{.Professores}}</h3>
        <p style="margin: 5px 0;">Professores Ativos</p>
      </div>
      <div style="background: white; padding: 15px; border-radius: 8px; text-align: center;">
        <h3 style="color: #10B981; margin: 0;">{{.Turmas}}</h3>
        <p style="margin: 5px 0;">Turmas Ativas</p>
      </div>
      <div style="background: white; padding: 15px; border-radius: 8px; text-align: center;">
        <h3 style="color: #F59E0B; margin: 0;">{{.Contactos}}</h3>
        <p style="margin: 5px 0;">Contactos Esta Semana</p>
      </div>
    </div>
  </div>` + footer + `
</div>
{{end}}
`))

// Render produces the HTML body for the event.
func Render(event Event) (string, error) {
	var buf strings.Builder
	if err := emailTemplates.ExecuteTemplate(&buf, string(event.Kind()), event); err != nil {
		return "", err
	}
	return buf.String(), nil
}
