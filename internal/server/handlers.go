package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/engine"
	"github.com/nerdneilsfield/go-page-overlay/internal/settings"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const defaultSearchLimit = 20

// InsertRequest POST /api/nodes 请求体
type InsertRequest struct {
	Selector string `json:"selector"`
	HTML     string `json:"html"`
}

// NodesResponse 节点修改结果
type NodesResponse struct {
	Inserted int `json:"inserted,omitempty"`
	Removed  int `json:"removed,omitempty"`
}

// SettingsResponse 设置读写结果
type SettingsResponse struct {
	TranslationEnabled bool `json:"translationEnabled"`
	Stored             bool `json:"stored"`
	Success            bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleDocument 渲染当前文档
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	var renderErr error
	if err := s.loop.Call(r.Context(), func() {
		renderErr = s.loop.Document().Render(&buf)
	}); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if renderErr != nil {
		s.writeError(w, http.StatusInternalServerError, renderErr)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg engine.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	resp, err := s.controller.HandleMessage(r.Context(), msg)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownAction) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.controller.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handleInsertNodes 解析片段并追加到选择器的第一个匹配元素。
// 插入在一个循环任务内完成，观察器在同一检查点翻译新节点。
func (s *Server) handleInsertNodes(w http.ResponseWriter, r *http.Request) {
	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Selector) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("selector is required"))
		return
	}
	sel, err := cascadia.Compile(req.Selector)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		inserted []*html.Node
		opErr    error
		found    bool
	)
	err = s.loop.Call(r.Context(), func() {
		doc := s.loop.Document()
		match := goquery.NewDocumentFromNode(doc.Root()).FindMatcher(sel).First()
		if match.Length() == 0 {
			return
		}
		found = true
		inserted, opErr = doc.AppendHTML(match.Get(0), req.HTML)
	})
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, errors.New("no element matches selector"))
		return
	}
	if opErr != nil {
		s.writeError(w, http.StatusBadRequest, opErr)
		return
	}
	s.writeJSON(w, http.StatusOK, NodesResponse{Inserted: len(inserted)})
}

// handleRemoveNodes 移除所有匹配的节点
func (s *Server) handleRemoveNodes(w http.ResponseWriter, r *http.Request) {
	selector := r.URL.Query().Get("selector")
	if strings.TrimSpace(selector) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("selector is required"))
		return
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	removed := 0
	err = s.loop.Call(r.Context(), func() {
		doc := s.loop.Document()
		goquery.NewDocumentFromNode(doc.Root()).FindMatcher(sel).Each(func(_ int, m *goquery.Selection) {
			n := m.Get(0)
			// 祖先已被移除的节点跳过
			if n.Parent == nil || !doc.Connected(n) {
				return
			}
			if err := doc.RemoveChild(n.Parent, n); err != nil {
				s.logger.Warn("failed to remove node", zap.Error(err))
				return
			}
			removed++
		})
	})
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NodesResponse{Removed: removed})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}

	limit := defaultSearchLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	fuzzy, _ := strconv.ParseBool(q.Get("fuzzy"))

	var results []dictionary.Entry
	if fuzzy {
		results = s.dict.SearchFuzzy(query, limit)
	} else {
		results = s.dict.Search(query, limit)
	}
	if results == nil {
		results = []dictionary.Entry{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SettingsResponse{
		TranslationEnabled: settings.Enabled(st, nil),
		Stored:             st.TranslationEnabled != nil,
		Success:            true,
	})
}

// handlePutSettings 保存开关，然后向页面发送开关命令
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var st settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if st.TranslationEnabled == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("translationEnabled is required"))
		return
	}
	if err := s.settings.Save(r.Context(), st); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	enabled := *st.TranslationEnabled
	resp, err := s.controller.HandleMessage(r.Context(), engine.Message{
		Action:  engine.ActionToggleTranslation,
		Enabled: enabled,
	})
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SettingsResponse{
		TranslationEnabled: enabled,
		Stored:             true,
		Success:            resp.Success,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
