package service

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"icodses/backend/internal/dto"
	"icodses/backend/internal/model"
	"icodses/backend/internal/repository"
)

const dateLayout = "2006-01-02"

// dbLocation 日期筛选按数据库会话时区（db.timezone）划分自然日
// 未配置或无法加载时退回进程本地时区
func dbLocation(tz string, logger *zap.Logger) *time.Location {
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("无法加载 db.timezone，日期筛选使用本地时区", zap.String("timezone", tz), zap.Error(err))
		return time.Local
	}
	return loc
}

// toPaperFilter 在 loc 时区解析 YYYY-MM-DD 日期与方向列表
func toPaperFilter(q *dto.PaperFilterQuery, reviewerTracks []string, loc *time.Location) (repository.PaperFilter, error) {
	var f repository.PaperFilter

	if v := strings.TrimSpace(q.FromDate); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return f, ErrInvalidDate
		}
		f.FromDate = &t
	}
	if v := strings.TrimSpace(q.ToDate); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return f, ErrInvalidDate
		}
		f.ToDate = &t
	}
	f.PaperTracks = q.Tracks()
	f.ReviewerTracks = reviewerTracks
	return f, nil
}

// encodeAbstract 摘要转 base64，同时返回嗅探的文件类型
func encodeAbstract(blob []byte) (*string, string) {
	if len(blob) == 0 {
		return nil, ""
	}
	s := base64.StdEncoding.EncodeToString(blob)
	return &s, string(model.SniffAbstract(blob))
}

func rawAuthors(p *model.Paper) json.RawMessage {
	if len(p.Authors) == 0 {
		return json.RawMessage("[]")
	}
	return json.RawMessage(p.Authors)
}

// latestByPaper 每篇论文 seq 最大的审稿记录
func latestByPaper(reviews []model.Review) map[uint]*model.Review {
	grouped := make(map[uint][]model.Review)
	for _, r := range reviews {
		grouped[r.PaperID] = append(grouped[r.PaperID], r)
	}
	out := make(map[uint]*model.Review, len(grouped))
	for id, list := range grouped {
		out[id] = model.LatestReview(list)
	}
	return out
}

func paperIDs(papers []model.Paper) []uint {
	ids := make([]uint, 0, len(papers))
	for _, p := range papers {
		ids = append(ids, p.ID)
	}
	return ids
}

func reviewFields(r *model.Review) (status *string, comments *string, at *time.Time) {
	if r == nil {
		return nil, nil, nil
	}
	s := string(r.Status)
	t := r.ReviewedAt
	return &s, r.Comments, &t
}

func reviewerNameOf(r *model.Review) *string {
	if r == nil || r.Reviewer == nil {
		return nil
	}
	n := r.Reviewer.Name
	return &n
}
