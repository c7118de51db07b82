/*
Package edu holds the domain records of the school administration:
professores, turmas, contactos and the notification settings.

The record types mirror the remote store's column layout exactly; fields
the store generates (identity and timestamps) are omitted from outgoing
payloads when empty.
*/
package edu

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Collection names in the remote store.
const (
	CollectionProfessores = "professores"
	CollectionTurmas      = "turmas"
	CollectionContactos   = "contactos"
)

// ProfessorStatus is the lifecycle state of a professor.
type ProfessorStatus string

// all professor states
const (
	ProfessorAtivo   ProfessorStatus = "ativo"
	ProfessorInativo ProfessorStatus = "inativo"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (s *ProfessorStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ProfessorStatus(str)
	switch *s {
	case ProfessorAtivo, ProfessorInativo:
		return nil
	default:
		return fmt.Errorf("%s is not a valid professor status", str)
	}
}

// TurmaStatus is the lifecycle state of a turma.
type TurmaStatus string

// all turma states
const (
	TurmaAtiva     TurmaStatus = "ativa"
	TurmaConcluida TurmaStatus = "concluida"
	TurmaSuspensa  TurmaStatus = "suspensa"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (s *TurmaStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = TurmaStatus(str)
	switch *s {
	case TurmaAtiva, TurmaConcluida, TurmaSuspensa:
		return nil
	default:
		return fmt.Errorf("%s is not a valid turma status", str)
	}
}

// ContactoEstado is the processing state of a contact record.
type ContactoEstado string

// all contacto states
const (
	ContactoPendente    ContactoEstado = "pendente"
	ContactoEmProgresso ContactoEstado = "em_progresso"
	ContactoConcluido   ContactoEstado = "concluido"
	ContactoCancelado   ContactoEstado = "cancelado"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (s *ContactoEstado) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ContactoEstado(str)
	switch *s {
	case ContactoPendente, ContactoEmProgresso, ContactoConcluido, ContactoCancelado:
		return nil
	default:
		return fmt.Errorf("%s is not a valid contacto state", str)
	}
}

// Professor is one teacher record. Owned by the remote store.
type Professor struct {
	ID           string          `json:"id,omitempty"`
	Nome         string          `json:"nome" validate:"required"`
	Telefone     string          `json:"telefone" validate:"required,telefone"`
	Email        string          `json:"email" validate:"required,email"`
	Cargo        string          `json:"cargo" validate:"required"`
	Departamento string          `json:"departamento" validate:"required"`
	Status       ProfessorStatus `json:"status" validate:"required"`
	CreatedAt    string          `json:"created_at,omitempty"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

// Turma is one class record. The professor reference is optional; its
// display name is resolved at read time, never stored.
type Turma struct {
	ID          string      `json:"id,omitempty"`
	Curso       string      `json:"curso" validate:"required"`
	Ano         string      `json:"ano" validate:"required"`
	CodFormacao string      `json:"cod_formacao"`
	ProfessorID *string     `json:"professor_id"`
	TotalAlunos int         `json:"total_alunos" validate:"gte=0"`
	Status      TurmaStatus `json:"status" validate:"required"`
	DataInicio  string      `json:"data_inicio" validate:"required"`
	CreatedAt   string      `json:"created_at,omitempty"`
	UpdatedAt   string      `json:"updated_at,omitempty"`
}

// Contacto is one contact record between two professores. Sender and
// receiver must differ; the rule is enforced as a struct-level validation.
type Contacto struct {
	ID         string         `json:"id,omitempty"`
	EmissorID  *string        `json:"emissor_id"`
	ReceptorID *string        `json:"receptor_id"`
	Motivo     string         `json:"motivo" validate:"required"`
	Estado     ContactoEstado `json:"estado" validate:"required"`
	Data       string         `json:"data" validate:"required"`
	Hora       string         `json:"hora" validate:"required"`
	Duracao    *int           `json:"duracao,omitempty" validate:"omitempty,gte=0"`
	Notas      *string        `json:"notas,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
}
