package domain

import "strings"

// CredentialKey — имя поля inputs с ключом API.
const CredentialKey = "apiKey"

// Inputs — параметры, переданные UI при запуске шага.
//
// Для runtime непрозрачны, кроме поля credential.
type Inputs map[string]any

// Credential возвращает ключ API, если он есть и не пустой.
func (in Inputs) Credential() (string, bool) {
	v, ok := in[CredentialKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Params возвращает копию inputs без credential.
func (in Inputs) Params() map[string]any {
	params := make(map[string]any, len(in))
	for k, v := range in {
		if k == CredentialKey {
			continue
		}
		params[k] = v
	}
	return params
}
