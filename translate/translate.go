// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package translate selects the message catalog used for every
// user visible string of the recompiler, from error text to the
// benchmark report printed by the command line tool.
package translate

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	mutex   sync.RWMutex
	tag     language.Tag
	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("dynarec: locale: %v", err)
	}

	SetLanguage(locales...)
}

// SetLanguage replaces the active printer with the best match for the
// given BCP 47 tags. With no tags, en-US is used.
func SetLanguage(tags ...string) {
	if len(tags) == 0 {
		tags = []string{"en-US"}
	}

	mutex.Lock()
	defer mutex.Unlock()
	tag = message.MatchLanguage(tags...)
	printer = message.NewPrinter(tag)
}

// Language returns the tag of the active printer.
func Language() language.Tag {
	mutex.RLock()
	defer mutex.RUnlock()
	return tag
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	mutex.RLock()
	defer mutex.RUnlock()
	return printer.Sprintf(key, args...)
}

// Fprintf writes a translated en-US Printf() format to w.
func Fprintf(w io.Writer, key message.Reference, args ...any) (n int, err error) {
	return fmt.Fprint(w, From(key, args...))
}
