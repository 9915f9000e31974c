package dictionary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Scraper 从三列表格（简体、繁体、英语）网页抓取词条
type Scraper struct {
	client    *http.Client
	logger    *zap.Logger
	userAgent string
	delay     time.Duration
}

// NewScraper 创建抓取器。delay 是连续请求之间的间隔。
func NewScraper(client *http.Client, logger *zap.Logger, delay time.Duration) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		client:    client,
		logger:    logger,
		userAgent: defaultUserAgent,
		delay:     delay,
	}
}

// Scrape 抓取单个页面
func (s *Scraper) Scrape(ctx context.Context, url string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	return ParseTables(resp.Body)
}

// ScrapeAll 依次抓取多个页面，单个页面失败只记录警告；全部失败时返回汇总错误
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) ([]Entry, error) {
	var (
		all  []Entry
		errs []error
	)
	for i, url := range urls {
		if i > 0 && s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return all, ctx.Err()
			}
		}

		s.logger.Info("fetching dictionary page", zap.String("url", url))
		entries, err := s.Scrape(ctx, url)
		if err != nil {
			s.logger.Warn("failed to scrape page", zap.String("url", url), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("scraped page", zap.String("url", url), zap.Int("entries", len(entries)))
		all = append(all, entries...)
	}

	if len(all) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// ParseTables 解析页面中所有表格，跳过每个表格的表头行。
// 简体和英语都必须存在，繁体缺失时使用简体。
func ParseTables(r io.Reader) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var entries []Entry
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() < 3 {
				return
			}
			simplified := strings.TrimSpace(cells.Eq(0).Text())
			traditional := strings.TrimSpace(cells.Eq(1).Text())
			english := strings.TrimSpace(cells.Eq(2).Text())
			if simplified == "" || english == "" {
				return
			}
			if traditional == "" {
				traditional = simplified
			}
			entries = append(entries, Entry{
				English:     english,
				Simplified:  simplified,
				Traditional: traditional,
			})
		})
	})
	return entries, nil
}
