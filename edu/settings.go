package edu

// NotificationSettings gates which events are mailed out and to whom.
// They live in the local mirror, not in the remote store: they are a
// user-interface preference, initialized from the signed-in user's email
// when nothing was persisted yet.
type NotificationSettings struct {
	EmailNovoProfessor bool     `json:"emailNovoProfessor"`
	EmailNovaTurma     bool     `json:"emailNovaTurma"`
	EmailNovoContacto  bool     `json:"emailNovoContacto"`
	RelatoriosSemanais bool     `json:"relatoriosSemanais"`
	EmailRecipients    []string `json:"emailRecipients" validate:"dive,required,email"`
}

// DefaultNotificationSettings returns the defaults used before the user
// ever saved anything. The recipient list is seeded with the user's own
// email when known.
func DefaultNotificationSettings(userEmail string) NotificationSettings {
	s := NotificationSettings{
		EmailNovoProfessor: true,
		EmailNovaTurma:     true,
		EmailNovoContacto:  false,
		RelatoriosSemanais: true,
	}
	if userEmail != "" {
		s.EmailRecipients = []string{userEmail}
	}
	return s
}

// Normalized returns a copy with duplicate recipients removed, keeping
// the first occurrence's position.
func (s NotificationSettings) Normalized() NotificationSettings {
	seen := make(map[string]bool, len(s.EmailRecipients))
	recipients := make([]string, 0, len(s.EmailRecipients))
	for _, r := range s.EmailRecipients {
		if !seen[r] {
			seen[r] = true
			recipients = append(recipients, r)
		}
	}
	s.EmailRecipients = recipients
	return s
}
