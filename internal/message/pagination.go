package message

import (
	"strconv"

	"github.com/hitoshi/matchtalk/internal/model"
)

// スレッド取得のページサイズ既定値。
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// PageLimits はlimitの既定値と上限。
type PageLimits struct {
	Default int
	Max     int
}

// normalize は未設定・矛盾した値を既定値で補う。
func (l PageLimits) normalize() PageLimits {
	if l.Max <= 0 {
		l.Max = MaxPageLimit
	}
	if l.Default <= 0 {
		l.Default = DefaultPageLimit
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	return l
}

// Page はスレッド取得のlimit/offset。
type Page struct {
	Limit  int
	Offset int
}

// ParsePage はクエリ文字列のlimit/offsetを解釈する。
// 空文字列は既定値、上限を超えるlimitは上限に丸める。
// 数値でない値、負の値、0のlimitはValidationErrorを返す。
func (l PageLimits) ParsePage(rawLimit, rawOffset string) (Page, error) {
	l = l.normalize()
	page := Page{Limit: l.Default}

	if rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return Page{}, model.NewInvalidPaginationError("limit", rawLimit)
		}
		page.Limit = min(limit, l.Max)
	}

	if rawOffset != "" {
		offset, err := strconv.Atoi(rawOffset)
		if err != nil || offset < 0 {
			return Page{}, model.NewInvalidPaginationError("offset", rawOffset)
		}
		page.Offset = offset
	}

	return page, nil
}
