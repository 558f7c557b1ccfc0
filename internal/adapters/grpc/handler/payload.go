package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/concurrency"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// fieldError はペイロードのフィールド型・書式が不正な場合のエラーです。
func fieldError(key, want string) error {
	return apperr.Validation("INVALID_FIELD", fmt.Sprintf("%s must be %s", key, want))
}

// decoder は Struct ペイロードを読み取り、最初のエラーを保持します。
// キーが存在して値が null の場合は「明示的に空にする」として扱います。
type decoder struct {
	fields map[string]*structpb.Value
	err    error
}

func newDecoder(in *structpb.Struct) *decoder {
	return &decoder{fields: in.GetFields()}
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) lookup(key string) (*structpb.Value, bool) {
	v, ok := d.fields[key]
	if !ok {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, true
	}
	return v, true
}

// str は文字列フィールドを返します。2番目の戻り値はキーの有無です。
func (d *decoder) str(key string) (*string, bool) {
	v, present := d.lookup(key)
	if v == nil {
		return nil, present
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		d.fail(fieldError(key, "a string"))
		return nil, present
	}
	value := s.StringValue
	return &value, true
}

func (d *decoder) id(key string) string {
	v, _ := d.str(key)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func (d *decoder) date(key string) (*time.Time, bool) {
	raw, present := d.str(key)
	if raw == nil {
		return nil, present
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		d.fail(fieldError(key, "a YYYY-MM-DD date"))
		return nil, present
	}
	return &t, true
}

func (d *decoder) boolean(key string) *bool {
	v, _ := d.lookup(key)
	if v == nil {
		return nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		d.fail(fieldError(key, "a boolean"))
		return nil
	}
	value := b.BoolValue
	return &value
}

func (d *decoder) integer(key string) int {
	v, _ := d.lookup(key)
	if v == nil {
		return 0
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != float64(int(n.NumberValue)) {
		d.fail(fieldError(key, "an integer"))
		return 0
	}
	return int(n.NumberValue)
}

// version はトランスポートを経由しない呼び出し向けの expectedVersion を読み取ります。
func (d *decoder) version() *time.Time {
	raw, _ := d.str("expectedVersion")
	if raw == nil {
		return nil
	}
	t, err := concurrency.ParseVersion(*raw)
	if err != nil {
		d.fail(err)
		return nil
	}
	return &t
}

type object map[string]any

func (o object) toStruct() (*structpb.Struct, error) {
	out, err := structpb.NewStruct(o)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "ENCODE", "encode response", err)
	}
	return out, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func optionalDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func optionalString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optionalTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timestamp(*t)
}

func list[T any](items []T, next string, encode func(T) object) object {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any(encode(item)))
	}
	return object{"items": out, "nextPageToken": next}
}
