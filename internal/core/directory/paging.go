package directory

import (
	"strconv"
	"strings"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
)

var (
	// ErrInvalidPageSize はページサイズが上限を超える場合に返却されます。
	ErrInvalidPageSize = apperr.Validation("INVALID_PAGE_SIZE", "page size must be between 1 and 200")
	// ErrInvalidPageToken はページトークンを解釈できない場合に返却されます。
	ErrInvalidPageToken = apperr.Validation("INVALID_PAGE_TOKEN", "invalid page token")
)

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}

func pagination(pageSize int, token string) (int, int, error) {
	limit, err := normalizePageSize(pageSize)
	if err != nil {
		return 0, 0, err
	}
	offset, err := parsePageToken(token)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
