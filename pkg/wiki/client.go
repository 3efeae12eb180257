// Package wiki 提供了一个面向 MediaWiki 与 REST Countries 的事实查询客户端。
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatbot-go/internal/config"
)

// Client 是百科事实查询的客户端。查询是固定的两步：
// 先按短语搜索，再按命中的标题取摘要；国家类事实走结构化属性查询。
type Client struct {
	language       string
	baseURL        string
	countryBaseURL string
	userAgent      string
	client         *http.Client
}

// NewClient 创建一个新的百科客户端实例。
func NewClient(cfg config.WikiConfig) *Client {
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.wikipedia.org", lang)
	}
	countryBaseURL := cfg.CountryBaseURL
	if countryBaseURL == "" {
		countryBaseURL = "https://restcountries.com"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "chatbot-go/1.0"
	}
	return &Client{
		language:       lang,
		baseURL:        baseURL,
		countryBaseURL: countryBaseURL,
		userAgent:      userAgent,
		client:         &http.Client{Timeout: timeout},
	}
}

// Summary 按短语搜索并返回首个命中条目的摘要文本。
func (c *Client) Summary(ctx context.Context, query string) (string, error) {
	title, err := c.search(ctx, query)
	if err != nil {
		return "", err
	}
	return c.extract(ctx, title)
}

// search 执行 MediaWiki 全文搜索，返回最佳命中标题。
func (c *Client) search(ctx context.Context, query string) (string, error) {
	apiURL := fmt.Sprintf("%s/w/api.php?action=query&list=search&srsearch=%s&utf8=&format=json&srlimit=1",
		c.baseURL, url.QueryEscape(query))

	body, err := c.get(ctx, apiURL)
	if err != nil {
		return "", err
	}

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("解析搜索结果失败: %w", err)
	}
	if len(result.Query.Search) == 0 {
		return "", fmt.Errorf("没有找到与 %q 匹配的条目", query)
	}
	return result.Query.Search[0].Title, nil
}

// extract 按标题取条目的纯文本摘要（introduction 部分）。
func (c *Client) extract(ctx context.Context, title string) (string, error) {
	apiURL := fmt.Sprintf("%s/w/api.php?action=query&prop=extracts&exintro=1&explaintext=1&titles=%s&format=json",
		c.baseURL, url.QueryEscape(title))

	body, err := c.get(ctx, apiURL)
	if err != nil {
		return "", err
	}

	var result struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("解析条目摘要失败: %w", err)
	}
	for _, p := range result.Query.Pages {
		if p.Extract == "" {
			continue
		}
		return firstSentences(p.Extract, 3), nil
	}
	return "", fmt.Errorf("条目 %q 没有摘要内容", title)
}

// countryInfo 是 REST Countries 返回的结构化国家属性子集。
type countryInfo struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Capital    []string `json:"capital"`
	Population int64    `json:"population"`
	Region     string   `json:"region"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
}

// CountryFact 对国家做结构化属性查询。fact 取值 capital/population/currency/region。
func (c *Client) CountryFact(ctx context.Context, country, fact string) (string, error) {
	apiURL := fmt.Sprintf("%s/v3.1/name/%s?fields=name,capital,population,region,currencies",
		c.countryBaseURL, url.PathEscape(country))

	body, err := c.get(ctx, apiURL)
	if err != nil {
		return "", err
	}

	var countries []countryInfo
	if err := json.Unmarshal(body, &countries); err != nil {
		return "", fmt.Errorf("解析国家信息失败: %w", err)
	}
	if len(countries) == 0 {
		return "", fmt.Errorf("没有找到国家 %q", country)
	}
	info := countries[0]

	switch fact {
	case "capital":
		if len(info.Capital) == 0 {
			return "", fmt.Errorf("国家 %q 没有首都信息", country)
		}
		return fmt.Sprintf("The capital of %s is %s.", info.Name.Common, info.Capital[0]), nil
	case "population":
		return fmt.Sprintf("The population of %s is about %d.", info.Name.Common, info.Population), nil
	case "currency":
		for _, cur := range info.Currencies {
			return fmt.Sprintf("The currency of %s is the %s.", info.Name.Common, cur.Name), nil
		}
		return "", fmt.Errorf("国家 %q 没有货币信息", country)
	case "region":
		return fmt.Sprintf("%s is located in %s.", info.Name.Common, info.Region), nil
	default:
		return "", fmt.Errorf("不支持的国家属性 %q", fact)
	}
}

// get 执行一次 GET 请求并返回响应体。
func (c *Client) get(ctx context.Context, apiURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用远端接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("远端接口返回错误 [%d]: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// firstSentences 截取摘要的前 n 句，避免把整段条目塞给用户。
func firstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return text
}
