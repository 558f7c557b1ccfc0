package postgres

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"

	// UUID 列に不正な文字列を渡した場合に返されます。該当行なしとして扱います。
	invalidTextRepresentationCode = "22P02"
)

// conditions は WHERE 句とプレースホルダ引数を組み立てます。
type conditions struct {
	exprs []string
	args  []any
}

// bind は引数を追加し、対応するプレースホルダを返します。
func (c *conditions) bind(arg any) string {
	c.args = append(c.args, arg)
	return "$" + strconv.Itoa(len(c.args))
}

func (c *conditions) add(exprPrefix string, arg any) {
	c.exprs = append(c.exprs, exprPrefix+c.bind(arg))
}

// companies は会社コードによる行レベル制限を追加します。codes が空の場合は何も一致しません。
func (c *conditions) companies(column string, restrict bool, codes []string) {
	if !restrict {
		return
	}
	if codes == nil {
		codes = []string{}
	}
	c.exprs = append(c.exprs, column+" = ANY("+c.bind(codes)+")")
}

func (c *conditions) where() string {
	if len(c.exprs) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.exprs, " AND ")
}

// paginate は limit+1 件取得した結果からページと次ページトークンを切り出します。
func paginate[T any](items []T, limit, offset int) ([]T, string) {
	if len(items) > limit {
		return items[:limit], strconv.Itoa(offset + limit)
	}
	return items, ""
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return dateOnly(*value)
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func datePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	d := dateOnly(value.Time)
	return &d
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
