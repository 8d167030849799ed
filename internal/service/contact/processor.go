package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	neturl "net/url"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/domain/entity"
	"github.com/LouYuanbo1/socialagent/internal/domain/model"
	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/internal/infra/blob"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
	"github.com/LouYuanbo1/socialagent/internal/infra/embedding"
	"github.com/LouYuanbo1/socialagent/internal/infra/persistence/es"
)

// ErrAllLinksFailed 本批次有实际尝试但全部失败,调用方据此决定治愈重启
var ErrAllLinksFailed = faults.New(faults.Transient, "批次内全部链接处理失败")

type BatchStats struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
	Good      int `json:"good"`
}

var profileLinkRe = regexp.MustCompile(`/in/([A-Za-z0-9\-_%]+)`)

// ProfileIDFromLink 从档案链接中提取档案ID
func ProfileIDFromLink(link string) (string, bool) {
	m := profileLinkRe.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	if id, err := neturl.PathUnescape(m[1]); err == nil {
		return id, true
	}
	return m[1], true
}

// Processor 联系人批处理器:按顺序访问链接集的[resumeIndex, len)区间,
// 对每个档案走 陈旧度闸门 → 活跃度打分 → 结果落盘
type Processor interface {
	ProcessAll(ctx context.Context, drv browser.Driver, links []string, resumeIndex int) (*BatchStats, error)
}

type processor struct {
	cfg      *config.Config
	store    es.ContactStore
	blob     blob.Store
	embedder embedding.Embedder
	classify *classifier
	log      *zap.Logger
}

// InitProcessor embedder可为nil,此时入库文档不带向量,问答代理检索不到它们
func InitProcessor(cfg *config.Config, store es.ContactStore, blobStore blob.Store, embedder embedding.Embedder, log *zap.Logger) Processor {
	log = log.Named("contact")
	return &processor{
		cfg:      cfg,
		store:    store,
		blob:     blobStore,
		embedder: embedder,
		classify: &classifier{cfg: cfg, log: log},
		log:      log,
	}
}

func (p *processor) ProcessAll(ctx context.Context, drv browser.Driver, links []string, resumeIndex int) (*BatchStats, error) {
	stats := &BatchStats{}
	if resumeIndex < 0 {
		resumeIndex = 0
	}
	if resumeIndex >= len(links) {
		return stats, nil
	}
	p.log.Info("开始批处理",
		zap.Int("total", len(links)),
		zap.Int("resume_index", resumeIndex))

	for i := resumeIndex; i < len(links); i++ {
		profileID, ok := ProfileIDFromLink(links[i])
		if !ok {
			p.log.Warn("无法识别的档案链接", zap.String("link", links[i]))
			stats.Errors++
			continue
		}

		// 陈旧度闸门是唯一的跳过机制
		stale, err := p.store.GetStaleness(ctx, profileID)
		if err != nil {
			return stats, err
		}
		if !stale {
			stats.Skipped++
			continue
		}

		status, err := p.processOne(ctx, drv, profileID)
		if err != nil {
			// 单档案失败记数后继续,其余分类(浏览器/存储/文件系统)对批次致命
			if faults.Is(err, faults.Profile) {
				p.log.Warn("跳过档案", zap.String("profile_id", profileID), zap.Error(err))
				stats.Errors++
				continue
			}
			return stats, err
		}
		stats.Processed++
		if status == model.StatusPossible {
			stats.Good++
		}
		p.sleepBetween(ctx)
	}

	attempted := stats.Processed + stats.Errors
	p.log.Info("批处理结束",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors),
		zap.Int("good", stats.Good))
	if attempted > 0 && stats.Processed == 0 {
		return stats, ErrAllLinksFailed
	}
	return stats, nil
}

func (p *processor) processOne(ctx context.Context, drv browser.Driver, profileID string) (string, error) {
	score, err := p.classify.Score(ctx, drv, profileID)
	if err != nil {
		return "", err
	}
	if score < p.cfg.Classify.Threshold {
		if err := p.store.MarkBad(ctx, profileID); err != nil {
			return "", err
		}
		return model.StatusProcessed, nil
	}

	raw, err := p.parseProfile(ctx, drv, profileID)
	if err != nil {
		return "", err
	}
	urls, err := p.captureAndUpload(ctx, drv, profileID, model.StatusPossible)
	if err != nil {
		return "", err
	}
	doc := raw.ToDocument(model.StatusPossible, score, urls)
	if p.embedder != nil {
		// 向量化失败不影响入库,只是问答代理检索不到这条档案
		if vectors, err := p.embedder.Embed(ctx, []string{doc.GetEmbeddingString()}); err != nil {
			p.log.Warn("档案向量化失败", zap.String("profile_id", profileID), zap.Error(err))
		} else if len(vectors) > 0 {
			doc.SetEmbedding(vectors[0])
		}
	}
	if err := p.store.UpsertStatus(ctx, doc); err != nil {
		return "", err
	}
	p.log.Info("档案入选",
		zap.String("profile_id", profileID),
		zap.Float64("score", score))
	return model.StatusPossible, nil
}

const jsProfileHeader = `(() => {
	const pick = (s) => { const e = document.querySelector(s); return e ? e.textContent.trim() : ''; };
	return JSON.stringify({
		name: pick('h1.profile-name'),
		headline: pick('div.profile-headline'),
		company: pick('span.profile-company'),
	});
})()`

func (p *processor) parseProfile(ctx context.Context, drv browser.Driver, profileID string) (*entity.RawProfileData, error) {
	url := fmt.Sprintf(p.cfg.Network.ProfileURL, profileID)
	if err := drv.Navigate(ctx, url); err != nil {
		return nil, faults.Markf(faults.Browser, err, "打开档案页失败: %s", profileID)
	}
	timeout := time.Duration(p.cfg.Crawl.NavTimeoutSeconds) * time.Second
	if _, err := drv.WaitForSelector(ctx, []string{selPageMain}, timeout); err != nil {
		return nil, faults.Markf(faults.Profile, err, "档案页无法加载: %s", profileID)
	}
	rawJSON, err := drv.Evaluate(ctx, jsProfileHeader)
	if err != nil {
		return nil, faults.Markf(faults.Browser, err, "提取档案头失败: %s", profileID)
	}
	var header struct {
		Name     string `json:"name"`
		Headline string `json:"headline"`
		Company  string `json:"company"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &header); err != nil {
		return nil, faults.Markf(faults.Browser, err, "档案头解析失败: %s", profileID)
	}
	return &entity.RawProfileData{
		ProfileID: profileID,
		Name:      header.Name,
		Headline:  header.Headline,
		Company:   header.Company,
	}, nil
}

// sleepBetween 档案之间的随机间隔,节奏太规律容易被风控盯上
func (p *processor) sleepBetween(ctx context.Context) {
	d := time.Duration(p.cfg.Crawl.StandardSleepSeconds) * time.Second
	if j := p.cfg.Crawl.RandomDelaySeconds; j > 0 {
		d += rand.N(time.Duration(j) * time.Second)
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
