// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"unicode"

	errors "gopkg.in/src-d/go-errors.v1"
)

var errUnexpectedSyntax = errors.NewKind("expecting %q but got %q instead")

type parseFunc func(*bufio.Reader) error

type parseFuncs []parseFunc

func (f parseFuncs) exec(r *bufio.Reader) error {
	for _, fn := range f {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func expectRune(expected rune) parseFunc {
	return func(rd *bufio.Reader) error {
		r, _, err := rd.ReadRune()
		if err != nil {
			return err
		}

		if r != expected {
			return errUnexpectedSyntax.New(string(expected), string(r))
		}

		return nil
	}
}

func expect(expected string) parseFunc {
	return func(r *bufio.Reader) error {
		var ident string

		if err := readIdent(&ident)(r); err != nil {
			return err
		}

		if ident == expected {
			return nil
		}

		return errUnexpectedSyntax.New(expected, ident)
	}
}

func skipSpaces(r *bufio.Reader) error {
	for {
		ru, _, err := r.ReadRune()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if !unicode.IsSpace(ru) {
			return r.UnreadRune()
		}
	}
}

// maybe consumes the keywords if they are all next in the input and
// reports it in matched. Nothing is consumed otherwise.
func maybe(matched *bool, keywords ...string) parseFunc {
	return func(rd *bufio.Reader) error {
		want := strings.Join(keywords, " ")
		peeked, err := rd.Peek(len(want) + 1)
		if err != nil && err != io.EOF {
			return err
		}

		s := strings.ToLower(string(peeked))
		for _, kw := range keywords {
			if !strings.HasPrefix(s, kw) {
				*matched = false
				return nil
			}
			s = strings.TrimLeftFunc(s[len(kw):], unicode.IsSpace)
		}

		*matched = true
		for i, kw := range keywords {
			if i > 0 {
				if err := skipSpaces(rd); err != nil {
					return err
				}
			}
			if err := expect(kw)(rd); err != nil {
				return err
			}
		}
		return nil
	}
}

func readValidIdentRune(r *bufio.Reader, buf *bytes.Buffer) error {
	ru, _, err := r.ReadRune()
	if err != nil {
		return err
	}

	if !unicode.IsLetter(ru) && !unicode.IsDigit(ru) && ru != '_' && ru != '$' {
		if err := r.UnreadRune(); err != nil {
			return err
		}
		return io.EOF
	}

	buf.WriteRune(ru)
	return nil
}

// readIdent reads an identifier. Unquoted identifiers are folded to lower
// case; double quoted ones are kept as is.
func readIdent(ident *string) parseFunc {
	return func(r *bufio.Reader) error {
		ru, _, err := r.ReadRune()
		if err != nil {
			return err
		}

		if ru == '"' {
			return readQuotedIdent(r, ident)
		}

		if !unicode.IsLetter(ru) && ru != '_' {
			return errUnexpectedSyntax.New("identifier", string(ru))
		}

		var buf bytes.Buffer
		buf.WriteRune(ru)
		for {
			if err := readValidIdentRune(r, &buf); err == io.EOF {
				break
			} else if err != nil {
				return err
			}
		}

		*ident = strings.ToLower(buf.String())
		return nil
	}
}

func readQuotedIdent(r *bufio.Reader, ident *string) error {
	var buf bytes.Buffer
	for {
		ru, _, err := r.ReadRune()
		if err == io.EOF {
			return errUnexpectedSyntax.New(`"`, "EOF")
		}
		if err != nil {
			return err
		}

		if ru == '"' {
			next, err := r.Peek(1)
			if err == nil && len(next) == 1 && next[0] == '"' {
				_, _, _ = r.ReadRune()
				buf.WriteRune('"')
				continue
			}
			break
		}
		buf.WriteRune(ru)
	}

	if buf.Len() == 0 {
		return errUnexpectedSyntax.New("identifier", `""`)
	}
	*ident = buf.String()
	return nil
}

// readQualifiedIdent reads an optionally schema qualified name.
func readQualifiedIdent(schema, name *string) parseFunc {
	return func(r *bufio.Reader) error {
		var first string
		if err := readIdent(&first)(r); err != nil {
			return err
		}

		next, err := r.Peek(1)
		if err != nil || len(next) == 0 || next[0] != '.' {
			*name = first
			return nil
		}

		_, _, _ = r.ReadRune()
		*schema = first
		return readIdent(name)(r)
	}
}

// maybeList reads a list of identifiers between open and close if the
// next rune is open.
func maybeList(open, sep, close rune, list *[]string) parseFunc {
	return func(r *bufio.Reader) error {
		next, err := r.Peek(1)
		if err != nil || len(next) == 0 || rune(next[0]) != open {
			return nil
		}
		_, _, _ = r.ReadRune()

		for {
			var item string
			err := parseFuncs{skipSpaces, readIdent(&item), skipSpaces}.exec(r)
			if err != nil {
				return err
			}
			*list = append(*list, item)

			ru, _, err := r.ReadRune()
			if err != nil {
				return err
			}
			switch ru {
			case sep:
				continue
			case close:
				return nil
			default:
				return errUnexpectedSyntax.New(fmt.Sprintf("%c or %c", sep, close), string(ru))
			}
		}
	}
}

// readOptions reads a parenthesized list of `name [= value]` storage
// options. Names may be qualified with a namespace.
func readOptions(opts map[string]string) parseFunc {
	return func(r *bufio.Reader) error {
		if err := expectRune('(')(r); err != nil {
			return err
		}

		for {
			var ns, name string
			err := parseFuncs{skipSpaces, readQualifiedIdent(&ns, &name), skipSpaces}.exec(r)
			if err != nil {
				return err
			}
			if ns != "" {
				name = ns + "." + name
			}

			ru, _, err := r.ReadRune()
			if err != nil {
				return err
			}

			var value string
			if ru == '=' {
				if err := (parseFuncs{skipSpaces, readOptionValue(&value), skipSpaces}).exec(r); err != nil {
					return err
				}
				if ru, _, err = r.ReadRune(); err != nil {
					return err
				}
			}
			opts[name] = value

			switch ru {
			case ',':
				continue
			case ')':
				return nil
			default:
				return errUnexpectedSyntax.New(", or )", string(ru))
			}
		}
	}
}

func readOptionValue(value *string) parseFunc {
	return func(r *bufio.Reader) error {
		next, err := r.Peek(1)
		if err != nil {
			return err
		}

		if next[0] == '\'' {
			_, _, _ = r.ReadRune()
			s := readString(r, true)
			if len(s) == 0 || s[len(s)-1] != '\'' {
				return errUnexpectedSyntax.New("'", "EOF")
			}
			*value = strings.Replace(string(s[:len(s)-1]), "''", "'", -1)
			return nil
		}

		var buf bytes.Buffer
		for {
			if err := readValidIdentRune(r, &buf); err == io.EOF {
				break
			} else if err != nil {
				return err
			}
		}
		if buf.Len() == 0 {
			return errUnexpectedSyntax.New("option value", "nothing")
		}
		*value = strings.ToLower(buf.String())
		return nil
	}
}

func readRemaining(val *string) parseFunc {
	return func(r *bufio.Reader) error {
		bytes, err := ioutil.ReadAll(r)
		if err != nil {
			return err
		}

		*val = string(bytes)
		return nil
	}
}

func removeComments(s string) string {
	r := bufio.NewReader(strings.NewReader(s))
	var result []rune
	for {
		ru, _, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		switch ru {
		case '\'', '"':
			result = append(result, ru)
			result = append(result, readString(r, ru == '\'')...)
		case '-':
			peeked, err := r.Peek(1)
			if err == nil &&
				len(peeked) == 1 &&
				rune(peeked[0]) == '-' {
				discardUntilEOL(r)
				result = append(result, '\n')
			} else {
				result = append(result, ru)
			}
		case '/':
			peeked, err := r.Peek(1)
			if err == nil &&
				len(peeked) == 1 &&
				rune(peeked[0]) == '*' {
				// read the char we peeked
				_, _, _ = r.ReadRune()
				discardMultilineComment(r)
				result = append(result, ' ')
			} else {
				result = append(result, ru)
			}
		default:
			result = append(result, ru)
		}
	}
	return string(result)
}

func discardUntilEOL(r *bufio.Reader) {
	for {
		ru, _, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if ru == '\n' {
			break
		}
	}
}

func discardMultilineComment(r *bufio.Reader) {
	for {
		ru, _, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if ru == '*' {
			peeked, err := r.Peek(1)
			if err == nil && len(peeked) == 1 && rune(peeked[0]) == '/' {
				// read the rune we just peeked
				_, _, _ = r.ReadRune()
				break
			}
		}
	}
}

// readString reads up to and including the closing quote. Quotes are
// escaped by doubling them or with a backslash.
func readString(r *bufio.Reader, single bool) []rune {
	quote := '"'
	if single {
		quote = '\''
	}

	var result []rune
	var escaped bool
	for {
		ru, _, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		result = append(result, ru)
		if ru == quote && !escaped {
			next, err := r.Peek(1)
			if err == nil && len(next) == 1 && rune(next[0]) == quote {
				_, _, _ = r.ReadRune()
				result = append(result, quote)
				continue
			}
			break
		}
		escaped = !escaped && ru == '\\'
	}
	return result
}
