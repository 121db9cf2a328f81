// Package i18n holds the translated user-facing messages: provider errors
// and the answer-language instruction appended to prompts.
package i18n

import (
	"fmt"
	"strings"
)

// Message ids.
const (
	ErrUnknownProvider = "error.unknown_provider"
	ErrMissingKey      = "error.missing_key"
	ErrShortKey        = "error.short_key"
	ErrMissingModel    = "error.missing_model"
	ErrAuth            = "error.auth"
	ErrAPI             = "error.api"
	ErrNetwork         = "error.network"
	ErrTimeout         = "error.timeout"
	ErrStalled         = "error.stalled"
	ErrEmptyAnswer     = "error.empty_answer"
	ErrUnknown         = "error.unknown"
	ErrRateLimit       = "error.rate_limit"
	ErrGeoRestricted   = "error.geo_restricted"
	ErrServer          = "error.server"
	ErrRandomQuestion  = "error.random_question"
	ErrNoModelSelected = "error.no_model_selected"
	ErrNoSuchInstance  = "error.no_such_instance"
	AnswerLanguage     = "prompt.answer_language"
)

// DefaultLanguage is used for unknown or empty language codes.
const DefaultLanguage = "en"

var catalog = map[string]map[string]string{
	"en": {
		ErrUnknownProvider: "Unknown AI provider: %s",
		ErrMissingKey:      "%s API key is not configured",
		ErrShortKey:        "%s API key looks too short (at least %d characters expected)",
		ErrMissingModel:    "No model is configured for %s",
		ErrAuth:            "Authentication with %s failed. Please check your API key.",
		ErrAPI:             "%s returned an error (HTTP %d)",
		ErrNetwork:         "Could not reach %s. Please check your network connection.",
		ErrTimeout:         "%s did not respond in time",
		ErrStalled:         "%s stopped responding before sending any content",
		ErrEmptyAnswer:     "%s returned an empty answer",
		ErrUnknown:         "An unexpected error occurred while talking to %s",
		ErrRateLimit:       "%s rate limit reached. Please wait a moment and try again.",
		ErrGeoRestricted:   "%s is not available in your region",
		ErrServer:          "%s is temporarily unavailable (server error)",
		ErrRandomQuestion:  "Could not generate a random question",
		ErrNoModelSelected: "No AI model is selected. Add one with \"askai models add\".",
		ErrNoSuchInstance:  "Model instance %q is not configured",
		AnswerLanguage:     "Please answer in English.",
	},
	"zh": {
		ErrUnknownProvider: "未知的 AI 服务商：%s",
		ErrMissingKey:      "尚未配置 %s 的 API 密钥",
		ErrShortKey:        "%s 的 API 密钥过短（至少需要 %d 个字符）",
		ErrMissingModel:    "尚未为 %s 配置模型",
		ErrAuth:            "%s 认证失败，请检查 API 密钥。",
		ErrAPI:             "%s 返回错误（HTTP %d）",
		ErrNetwork:         "无法连接到 %s，请检查网络连接。",
		ErrTimeout:         "%s 响应超时",
		ErrStalled:         "%s 在返回任何内容之前停止了响应",
		ErrEmptyAnswer:     "%s 返回了空回答",
		ErrUnknown:         "与 %s 通信时发生未知错误",
		ErrRateLimit:       "%s 已达到请求频率限制，请稍后再试。",
		ErrGeoRestricted:   "%s 在您所在的地区不可用",
		ErrServer:          "%s 暂时不可用（服务器错误）",
		ErrRandomQuestion:  "无法生成随机问题",
		ErrNoModelSelected: "尚未选择 AI 模型，请使用 \"askai models add\" 添加。",
		ErrNoSuchInstance:  "未配置模型实例 %q",
		AnswerLanguage:     "请用中文回答。",
	},
	"de": {
		ErrUnknownProvider: "Unbekannter KI-Anbieter: %s",
		ErrMissingKey:      "Für %s ist kein API-Schlüssel konfiguriert",
		ErrShortKey:        "Der API-Schlüssel für %s ist zu kurz (mindestens %d Zeichen erwartet)",
		ErrMissingModel:    "Für %s ist kein Modell konfiguriert",
		ErrAuth:            "Die Authentifizierung bei %s ist fehlgeschlagen. Bitte API-Schlüssel prüfen.",
		ErrAPI:             "%s hat einen Fehler gemeldet (HTTP %d)",
		ErrNetwork:         "%s ist nicht erreichbar. Bitte Netzwerkverbindung prüfen.",
		ErrTimeout:         "%s hat nicht rechtzeitig geantwortet",
		ErrStalled:         "%s hat aufgehört zu antworten, bevor Inhalte gesendet wurden",
		ErrEmptyAnswer:     "%s hat eine leere Antwort geliefert",
		ErrUnknown:         "Bei der Kommunikation mit %s ist ein unerwarteter Fehler aufgetreten",
		ErrRateLimit:       "Anfragelimit von %s erreicht. Bitte kurz warten und erneut versuchen.",
		ErrGeoRestricted:   "%s ist in Ihrer Region nicht verfügbar",
		ErrServer:          "%s ist vorübergehend nicht verfügbar (Serverfehler)",
		ErrRandomQuestion:  "Es konnte keine zufällige Frage erzeugt werden",
		ErrNoModelSelected: "Kein KI-Modell ausgewählt. Mit \"askai models add\" eines hinzufügen.",
		ErrNoSuchInstance:  "Modellinstanz %q ist nicht konfiguriert",
		AnswerLanguage:     "Bitte antworte auf Deutsch.",
	},
	"fr": {
		ErrUnknownProvider: "Fournisseur d'IA inconnu : %s",
		ErrMissingKey:      "Aucune clé API n'est configurée pour %s",
		ErrShortKey:        "La clé API de %s semble trop courte (au moins %d caractères attendus)",
		ErrMissingModel:    "Aucun modèle n'est configuré pour %s",
		ErrAuth:            "L'authentification auprès de %s a échoué. Vérifiez votre clé API.",
		ErrAPI:             "%s a renvoyé une erreur (HTTP %d)",
		ErrNetwork:         "Impossible de joindre %s. Vérifiez votre connexion réseau.",
		ErrTimeout:         "%s n'a pas répondu à temps",
		ErrStalled:         "%s a cessé de répondre avant d'envoyer du contenu",
		ErrEmptyAnswer:     "%s a renvoyé une réponse vide",
		ErrUnknown:         "Une erreur inattendue s'est produite avec %s",
		ErrRateLimit:       "Limite de requêtes de %s atteinte. Patientez un instant puis réessayez.",
		ErrGeoRestricted:   "%s n'est pas disponible dans votre région",
		ErrServer:          "%s est temporairement indisponible (erreur serveur)",
		ErrRandomQuestion:  "Impossible de générer une question aléatoire",
		ErrNoModelSelected: "Aucun modèle d'IA sélectionné. Ajoutez-en un avec \"askai models add\".",
		ErrNoSuchInstance:  "L'instance de modèle %q n'est pas configurée",
		AnswerLanguage:     "Merci de répondre en français.",
	},
	"es": {
		ErrUnknownProvider: "Proveedor de IA desconocido: %s",
		ErrMissingKey:      "No hay ninguna clave API configurada para %s",
		ErrShortKey:        "La clave API de %s parece demasiado corta (se esperan al menos %d caracteres)",
		ErrMissingModel:    "No hay ningún modelo configurado para %s",
		ErrAuth:            "La autenticación con %s ha fallado. Revisa tu clave API.",
		ErrAPI:             "%s devolvió un error (HTTP %d)",
		ErrNetwork:         "No se puede conectar con %s. Revisa tu conexión de red.",
		ErrTimeout:         "%s no respondió a tiempo",
		ErrStalled:         "%s dejó de responder antes de enviar contenido",
		ErrEmptyAnswer:     "%s devolvió una respuesta vacía",
		ErrUnknown:         "Se produjo un error inesperado con %s",
		ErrRateLimit:       "Se alcanzó el límite de solicitudes de %s. Espera un momento e inténtalo de nuevo.",
		ErrGeoRestricted:   "%s no está disponible en tu región",
		ErrServer:          "%s no está disponible temporalmente (error del servidor)",
		ErrRandomQuestion:  "No se pudo generar una pregunta aleatoria",
		ErrNoModelSelected: "No hay ningún modelo de IA seleccionado. Añade uno con \"askai models add\".",
		ErrNoSuchInstance:  "La instancia de modelo %q no está configurada",
		AnswerLanguage:     "Por favor, responde en español.",
	},
}

// Normalize maps codes like "zh_CN" or "de-AT" to a supported language,
// falling back to English.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "_-"); i > 0 {
		lang = lang[:i]
	}
	if _, ok := catalog[lang]; ok {
		return lang
	}
	return DefaultLanguage
}

// IsEnglish reports whether lang resolves to English.
func IsEnglish(lang string) bool {
	return Normalize(lang) == "en"
}

// T returns the message id in lang formatted with args. Messages missing
// from a table fall back to English; unknown ids are returned as is.
func T(lang, id string, args ...any) string {
	msg, ok := catalog[Normalize(lang)][id]
	if !ok {
		msg, ok = catalog[DefaultLanguage][id]
	}
	if !ok {
		return id
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Languages returns the supported language codes.
func Languages() []string {
	return []string{"en", "zh", "de", "fr", "es"}
}
