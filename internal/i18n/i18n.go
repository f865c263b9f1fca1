// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n renders user-facing mail text in the requester's language.
package i18n

import (
	"context"
	"embed"
	"sync"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	bundle    *goi18n.Bundle
	initOnce  sync.Once
	initErr   error
	supported = []language.Tag{language.English, language.German}
	matcher   = language.NewMatcher(supported)
)

type localizerContextKey struct{}

// Init loads the embedded translations. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		b := goi18n.NewBundle(language.English)
		b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		for _, file := range []string{"translations/active.en.toml", "translations/active.de.toml"} {
			if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
				initErr = err
				return
			}
		}
		bundle = b
	})
	return initErr
}

// WithLocale stores a localizer for lang in the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	base, _ := lang.Base()
	return context.WithValue(ctx, localizerContextKey{}, localizedFor(base.String()))
}

// GetLocale returns the locale stored by WithLocale, or "en".
func GetLocale(ctx context.Context) string {
	if l, ok := ctx.Value(localizerContextKey{}).(*localizer); ok {
		return l.locale
	}
	return "en"
}

// T translates a message by ID. Unknown IDs are returned unchanged.
func T(ctx context.Context, messageID string) string {
	return TData(ctx, messageID, nil)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	l := fromContext(ctx)
	if l.inner == nil {
		return messageID
	}
	msg, err := l.inner.Localize(&goi18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// MatchLanguage picks the best supported language for an Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	return tag
}

type localizer struct {
	inner  *goi18n.Localizer
	locale string
}

func localizedFor(locale string) *localizer {
	l := &localizer{locale: locale}
	if bundle != nil {
		l.inner = goi18n.NewLocalizer(bundle, locale)
	}
	return l
}

func fromContext(ctx context.Context) *localizer {
	if l, ok := ctx.Value(localizerContextKey{}).(*localizer); ok && l.inner != nil {
		return l
	}
	return localizedFor("en")
}
