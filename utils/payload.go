package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const maxMultipartMemory = 32 << 20

// Payload is a flattened view of a form or JSON request body. Nested keys
// use dots ("address.country") whichever encoding the client picked.
type Payload struct {
	values map[string][]string
	files  map[string][]*multipart.FileHeader
}

func NewPayload(values map[string][]string) *Payload {
	if values == nil {
		values = map[string][]string{}
	}
	return &Payload{values: values, files: map[string][]*multipart.FileHeader{}}
}

// ReadPayload parses the request body once, by content type.
func ReadPayload(c *gin.Context) (*Payload, error) {
	p := NewPayload(nil)

	switch contentType := c.ContentType(); {
	case contentType == binding.MIMEJSON:
		var body map[string]interface{}
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()
		if err := decoder.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		flatten("", body, p.values)
		return p, nil
	case contentType == binding.MIMEMultipartPOSTForm:
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
	default:
		if err := c.Request.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
	}

	for key, values := range c.Request.PostForm {
		name := normalizeKey(key)
		p.values[name] = append(p.values[name], values...)
	}
	if form := c.Request.MultipartForm; form != nil {
		for key, headers := range form.File {
			name := normalizeKey(key)
			p.files[name] = append(p.files[name], headers...)
		}
	}
	return p, nil
}

// normalizeKey maps "address[country]" to "address.country" and strips list
// suffixes such as "images[]" or "images[0]".
func normalizeKey(key string) string {
	key = strings.TrimSuffix(key, "[]")
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key
	}
	base, inner := key[:open], key[open+1:len(key)-1]
	if _, err := strconv.Atoi(inner); err == nil {
		return base
	}
	return base + "." + inner
}

func flatten(prefix string, value interface{}, out map[string][]string) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if prefix != "" {
				key = prefix + "." + key
			}
			flatten(key, child, out)
		}
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, item := range v {
			list = append(list, scalar(item))
		}
		out[prefix] = list
	default:
		out[prefix] = []string{scalar(v)}
	}
}

func scalar(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Has reports whether the key was sent at all.
func (p *Payload) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *Payload) String(key string) string {
	if values := p.values[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Filled reports whether the key was sent with a non-blank value.
func (p *Payload) Filled(key string) bool {
	return strings.TrimSpace(p.String(key)) != ""
}

// Optional returns the first value of key, marked as set when the key was sent.
func (p *Payload) Optional(key string) Optional[string] {
	if !p.Has(key) {
		return Optional[string]{}
	}
	return Some(p.String(key))
}

// Values returns every value sent for key in request order, blanks included.
func (p *Payload) Values(key string) []string {
	return p.values[key]
}

// List returns the non-empty values sent for key.
func (p *Payload) List(key string) []string {
	var list []string
	for _, value := range p.values[key] {
		if value = strings.TrimSpace(value); value != "" {
			list = append(list, value)
		}
	}
	return list
}

func (p *Payload) File(key string) *multipart.FileHeader {
	if files := p.files[key]; len(files) > 0 {
		return files[0]
	}
	return nil
}

func (p *Payload) Files(key string) []*multipart.FileHeader {
	return p.files[key]
}
