package repository

import (
	"time"

	"gorm.io/gorm"
)

// PaperFilter 论文 / 分配列表的筛选条件
type PaperFilter struct {
	FromDate       *time.Time // papers.created_at >= FromDate
	ToDate         *time.Time // papers.created_at < ToDate + 1 天
	PaperTracks    []string
	ReviewerTracks []string // 仅分配列表使用
}

// applyPaperFilter 按论文创建时间与方向筛选，paperCol 为论文表别名
func applyPaperFilter(db *gorm.DB, f PaperFilter, paperCol string) *gorm.DB {
	if f.FromDate != nil {
		db = db.Where(paperCol+".created_at >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		db = db.Where(paperCol+".created_at < ?", f.ToDate.AddDate(0, 0, 1))
	}
	if len(f.PaperTracks) > 0 {
		db = db.Where(paperCol+".tracks IN ?", f.PaperTracks)
	}
	return db
}

// GroupCount 分组计数
type GroupCount struct {
	Name  string
	Count int64
}
