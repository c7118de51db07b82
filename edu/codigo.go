package edu

import (
	"fmt"
	"math/rand"
	"strings"
)

// GenerateFormationCode builds a formation code for a turma that was
// saved without one: the first three letters of the course name,
// uppercased, followed by the year and a random three-digit suffix.
// Example: "Programação Web" in 2025 becomes "PRO2025-042".
func GenerateFormationCode(curso, ano string) string {
	runes := []rune(strings.ToUpper(curso))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return fmt.Sprintf("%s%s-%03d", string(runes), ano, rand.Intn(1000))
}
