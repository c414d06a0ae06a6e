package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptBR = map[string]string{
	"profile.title":                "Perfil",
	"profile.loading":              "Carregando perfil...",
	"profile.back":                 "Voltar",
	"profile.photo_alt":            "Foto de perfil",
	"profile.name":                 "Nome",
	"profile.email":                "Email",
	"profile.policy.title":         "Política de Acesso",
	"profile.policy.body":          "Manter-se como usuário garante acesso contínuo aos recursos exclusivos, além de melhorias constantes no serviço. Fique com a gente para aproveitamento total de nossa plataforma.",
	"profile.terms.open":           "Ler os termos",
	"profile.terms.title":          "Termos de uso",
	"profile.terms.body":           "Seus dados de perfil são usados apenas para identificar sua conta dentro da plataforma.",
	"profile.terms.close":          "Fechar",
	"profile.edit":                 "Editar",
	"profile.cancel":               "Cancelar",
	"profile.save":                 "Salvar",
	"profile.saving":               "Salvando...",
	"profile.delete":               "Excluir Conta",
	"profile.delete.confirm_title": "Excluir sua conta?",
	"profile.delete.confirm_body":  "Esta ação é permanente e não pode ser desfeita.",
	"profile.delete.confirm":       "Sim, excluir",
	"profile.delete.dismiss":       "Manter conta",
	"profile.reset.open":           "Alterar senha",
	"profile.reset.body":           "Enviaremos um link de redefinição de senha para o seu e-mail.",
	"profile.reset.send":           "Enviar link",
	"profile.reset.confirm_title":  "Enviar e-mail de redefinição?",
	"profile.reset.confirm":        "Confirmar",
	"profile.reset.dismiss":        "Cancelar",
	"profile.reset.sent":           "E-mail de redefinição enviado. Verifique sua caixa de entrada.",
	"profile.reset.close":          "Fechar",
	"profile.logout":               "Sair",

	"profile.error.not_authenticated": "Usuário não autenticado.",
	"profile.error.blank_name":        "O nome de exibição não pode ficar em branco.",
	"profile.error.invalid_email":     "O e-mail inserido não é válido.",
	"profile.error.save_failed":       "Erro ao salvar as alterações.",
	"profile.error.delete_failed":     "Erro ao excluir sua conta.",
	"profile.error.reset_failed":      "Erro ao enviar o e-mail de redefinição de senha.",

	"login.title":         "Entrar",
	"login.email":         "Email",
	"login.password":      "Senha",
	"login.submit":        "Entrar",
	"login.invalid":       "E-mail ou senha inválidos.",
	"login.challenge":     "Confirme que você não é um robô.",
	"login.id_token":      "Token de ID",
	"login.firebase_hint": "Entre pelo aplicativo: o token de ID do Firebase é trocado aqui por um cookie de sessão.",

	"reset.title":     "Redefinir senha",
	"reset.password":  "Nova senha",
	"reset.submit":    "Salvar senha",
	"reset.invalid":   "Link de redefinição inválido ou expirado.",
	"reset.too_short": "A senha deve ter pelo menos 6 caracteres.",
	"reset.done":      "Senha alterada. Entre novamente.",

	"api.unauthorized":   "Não autorizado.",
	"api.invalid_body":   "Corpo da requisição inválido.",
	"api.validation":     "Falha de validação.",
	"api.screen_expired": "A tela foi fechada. Recarregue o perfil.",
	"api.unavailable":    "Serviço indisponível. Tente novamente.",
}

var en = map[string]string{
	"profile.title":                "Profile",
	"profile.loading":              "Loading profile...",
	"profile.back":                 "Back",
	"profile.photo_alt":            "Profile photo",
	"profile.name":                 "Name",
	"profile.email":                "Email",
	"profile.policy.title":         "Access Policy",
	"profile.policy.body":          "Staying a member keeps your access to exclusive features and to the ongoing improvements of the service.",
	"profile.terms.open":           "Read the terms",
	"profile.terms.title":          "Terms of use",
	"profile.terms.body":           "Your profile data is only used to identify your account inside the platform.",
	"profile.terms.close":          "Close",
	"profile.edit":                 "Edit",
	"profile.cancel":               "Cancel",
	"profile.save":                 "Save",
	"profile.saving":               "Saving...",
	"profile.delete":               "Delete Account",
	"profile.delete.confirm_title": "Delete your account?",
	"profile.delete.confirm_body":  "This is permanent and cannot be undone.",
	"profile.delete.confirm":       "Yes, delete",
	"profile.delete.dismiss":       "Keep account",
	"profile.reset.open":           "Change password",
	"profile.reset.body":           "We will email you a password reset link.",
	"profile.reset.send":           "Send link",
	"profile.reset.confirm_title":  "Send the reset email?",
	"profile.reset.confirm":        "Confirm",
	"profile.reset.dismiss":        "Cancel",
	"profile.reset.sent":           "Reset email sent. Check your inbox.",
	"profile.reset.close":          "Close",
	"profile.logout":               "Sign out",

	"profile.error.not_authenticated": "User not authenticated.",
	"profile.error.blank_name":        "The display name cannot be blank.",
	"profile.error.invalid_email":     "The email entered is not valid.",
	"profile.error.save_failed":       "Failed to save changes.",
	"profile.error.delete_failed":     "Failed to delete your account.",
	"profile.error.reset_failed":      "Failed to send the password reset email.",

	"login.title":         "Sign in",
	"login.email":         "Email",
	"login.password":      "Password",
	"login.submit":        "Sign in",
	"login.invalid":       "Invalid email or password.",
	"login.challenge":     "Please confirm you are not a robot.",
	"login.id_token":      "ID token",
	"login.firebase_hint": "Sign in from the app: the Firebase ID token is exchanged here for a session cookie.",

	"reset.title":     "Reset password",
	"reset.password":  "New password",
	"reset.submit":    "Save password",
	"reset.invalid":   "Invalid or expired reset link.",
	"reset.too_short": "Password must be at least 6 characters.",
	"reset.done":      "Password changed. Sign in again.",

	"api.unauthorized":   "Unauthorized.",
	"api.invalid_body":   "Invalid request body.",
	"api.validation":     "Validation failed.",
	"api.screen_expired": "The screen was closed. Reload the profile.",
	"api.unavailable":    "Service unavailable. Try again.",
}

func init() {
	register(language.BrazilianPortuguese, ptBR)
	register(language.English, en)
}

func register(tag language.Tag, entries map[string]string) {
	for key, text := range entries {
		if err := message.SetString(tag, key, text); err != nil {
			panic(err)
		}
	}
}
