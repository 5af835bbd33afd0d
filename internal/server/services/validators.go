package services

import (
	"regexp"
	"strings"

	"github.com/bloomlabs/bloom/internal/common"
)

const (
	namespaceMinLength   = 4
	namespaceMaxLength   = 20
	nameMinLength        = 3
	nameMaxLength        = 42
	descriptionMaxLength = 420
)

var (
	emailRegexp     = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	namespaceRegexp = regexp.MustCompile(`^[a-z0-9]+$`)
)

// blockedEmailDomains are throwaway providers we refuse to register.
var blockedEmailDomains = map[string]struct{}{
	"mailinator.com":      {},
	"guerrillamail.com":   {},
	"10minutemail.com":    {},
	"temp-mail.org":       {},
	"yopmail.com":         {},
	"throwawaymail.com":   {},
	"sharklasers.com":     {},
	"getnada.com":         {},
	"maildrop.cc":         {},
	"trashmail.com":       {},
	"tempmailaddress.com": {},
	"dispostable.com":     {},
}

// invalidNamespaces are reserved words that can never be claimed as a
// username or group path: product routes, infrastructure names, and words
// useful for impersonation.
var invalidNamespaces = map[string]struct{}{
	"about": {}, "abuse": {}, "admin": {}, "administrator": {}, "admins": {},
	"analytics": {}, "api": {}, "app": {}, "apps": {}, "assets": {},
	"auth": {}, "billing": {}, "blog": {}, "bloom": {}, "bot": {},
	"bots": {}, "calendar": {}, "cdn": {}, "contact": {}, "contacts": {},
	"dashboard": {}, "dev": {}, "developer": {}, "developers": {}, "docs": {},
	"download": {}, "downloads": {}, "email": {}, "faq": {}, "files": {},
	"ftp": {}, "group": {}, "groups": {}, "help": {}, "helpdesk": {},
	"host": {}, "hostmaster": {}, "imap": {}, "inbox": {}, "info": {},
	"invite": {}, "legal": {}, "login": {}, "logout": {}, "mail": {},
	"mailer": {}, "marketing": {}, "me": {}, "media": {}, "moderator": {},
	"news": {}, "newsletter": {}, "noreply": {}, "notification": {},
	"notifications": {}, "ops": {}, "owner": {}, "payment": {}, "payments": {},
	"policy": {}, "pop3": {}, "postmaster": {}, "press": {}, "pricing": {},
	"privacy": {}, "profile": {}, "register": {}, "root": {}, "sales": {},
	"secure": {}, "security": {}, "settings": {}, "signin": {}, "signup": {},
	"smtp": {}, "ssl": {}, "staff": {}, "static": {}, "status": {},
	"store": {}, "support": {}, "sys": {}, "sysadmin": {}, "system": {},
	"team": {}, "teams": {}, "terms": {}, "test": {}, "user": {},
	"username": {}, "users": {}, "webmaster": {}, "webmail": {}, "www": {},
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateEmail(email string) error {
	if email == "" || len(email) > 254 || !emailRegexp.MatchString(email) {
		return common.ErrInvalidEmail
	}
	if email != strings.ToLower(email) {
		return common.ErrInvalidEmail
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return common.ErrInvalidEmail
	}
	if _, blocked := blockedEmailDomains[parts[1]]; blocked {
		return common.ErrInvalidEmail
	}
	return nil
}

func validateNamespace(namespace string) error {
	if len(namespace) < namespaceMinLength || len(namespace) > namespaceMaxLength {
		return common.ErrInvalidNamespace
	}
	if !namespaceRegexp.MatchString(namespace) {
		return common.ErrInvalidNamespace
	}
	if _, reserved := invalidNamespaces[namespace]; reserved {
		return common.ErrInvalidNamespace
	}
	return nil
}

// validateUsername applies the namespace rules: a username claims the
// user's personal namespace path.
func validateUsername(username string) error {
	if err := validateNamespace(username); err != nil {
		return common.ErrInvalidUsername
	}
	return nil
}

func validateName(name string) error {
	if len(name) < nameMinLength || len(name) > nameMaxLength {
		return common.ErrInvalidName
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > descriptionMaxLength {
		return common.ErrInvalidDescription
	}
	return nil
}
