// Package skbtest runs an in-memory SKB server for tests. It checks request
// signatures with the client public key and rejects replayed nonces.
package skbtest

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hm-skb/skb/internal/skbsdk"
)

const ctxBody = "skbtest.body"

// File is the server side record of a tracked file.
type File struct {
	ID           string
	Path         string
	Content      []byte
	LastModified int64
	Uploaded     bool
}

// Call is one authenticated request the server handled.
type Call struct {
	Method string
	Path   string
	Query  string
}

func (c Call) String() string { return c.Method + " " + c.Path }

type Server struct {
	mu       sync.Mutex
	pub      *rsa.PublicKey
	http     *httptest.Server
	nonces   map[string]struct{}
	files    []*File
	servers  []skbsdk.InfoServer
	discover []skbsdk.ServerItem
	calls    []Call
	rejected int

	// OmitLastModified makes downloads answer without a Last-Modified header.
	OmitLastModified bool
	// Usage is reported verbatim in the info snapshot.
	Usage skbsdk.InfoResponse
}

// NewKey generates a client key for a test.
func NewKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

// New starts a server trusting pub. It is closed when the test ends.
func New(t testing.TB, pub *rsa.PublicKey) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		pub:    pub,
		nonces: make(map[string]struct{}),
	}

	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group(skbsdk.APIPrefix)
	v1.Use(s.verifySignature)
	{
		v1.GET("/info/", s.handleInfo)

		v1.POST("/file/", s.handleCreate)
		v1.POST("/file/:id/", s.handleUpload)
		v1.PUT("/file/:id/", s.handleUpload)
		v1.GET("/file/:id/", s.handleDownload)
		v1.DELETE("/file/:id/", s.handleDelete)

		v1.GET("/server/", s.handleDiscover)
		v1.POST("/server/", s.handleServerAdd)
		v1.PUT("/server/", s.handleServerAccept)
		v1.DELETE("/server/", s.handleServerDelete)
	}

	s.http = httptest.NewServer(r)
	t.Cleanup(s.http.Close)
	return s
}

func (s *Server) URL() string { return s.http.URL }

// AddFile tracks path as if it was uploaded at mtime and returns its id.
func (s *Server) AddFile(path string, content []byte, mtime int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &File{ID: uuid.NewString(), Path: path, Content: content, LastModified: mtime, Uploaded: true}
	s.files = append(s.files, f)
	return f.ID
}

// File returns a copy of the record tracked under path.
func (s *Server) File(path string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f := s.findPath(path); f != nil {
		cp := *f
		cp.Content = slices.Clone(f.Content)
		return cp, true
	}
	return File{}, false
}

func (s *Server) AddServer(srv skbsdk.InfoServer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = append(s.servers, srv)
}

func (s *Server) AddDiscoverable(item skbsdk.ServerItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discover = append(s.discover, item)
}

func (s *Server) Servers() []skbsdk.InfoServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.servers)
}

// Calls lists the authenticated requests in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// ActionCalls are the calls other than snapshot fetches.
func (s *Server) ActionCalls() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if !strings.HasSuffix(c.Path, "/info/") {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) CountCalls(method, pathPrefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, skbsdk.APIPrefix+pathPrefix) {
			n++
		}
	}
	return n
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Rejected counts requests refused for a bad signature or a replayed nonce.
func (s *Server) Rejected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

func (s *Server) reject(c *gin.Context, msg string) {
	s.mu.Lock()
	s.rejected++
	s.mu.Unlock()

	c.String(http.StatusUnauthorized, msg)
	c.Abort()
}

func (s *Server) verifySignature(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		c.Abort()
		return
	}

	if err := skbsdk.Verify(s.pub, body, c.GetHeader(skbsdk.HeaderSignature)); err != nil {
		s.reject(c, "invalid signature")
		return
	}

	if strings.HasPrefix(c.ContentType(), skbsdk.ContentTypeJSON) {
		var nonced struct {
			Nonce string `json:"nonce"`
		}
		if err := json.Unmarshal(body, &nonced); err != nil || nonced.Nonce == "" {
			s.reject(c, "missing nonce")
			return
		}

		s.mu.Lock()
		_, seen := s.nonces[nonced.Nonce]
		s.nonces[nonced.Nonce] = struct{}{}
		s.mu.Unlock()

		if seen {
			s.reject(c, "nonce reused")
			return
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: c.Request.Method, Path: c.Request.URL.Path, Query: c.Request.URL.RawQuery})
	s.mu.Unlock()

	c.Set(ctxBody, body)
	c.Next()
}

func (s *Server) handleInfo(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := s.Usage
	resp.Servers = slices.Clone(s.servers)
	resp.Files = make([]skbsdk.InfoFile, 0, len(s.files))
	for _, f := range s.files {
		resp.Files = append(resp.Files, skbsdk.InfoFile{ID: f.ID, Path: f.Path, LastModified: f.LastModified})
	}
	if resp.Servers == nil {
		resp.Servers = []skbsdk.InfoServer{}
	}

	c.PureJSON(http.StatusOK, resp)
}

func (s *Server) handleCreate(c *gin.Context) {
	var body skbsdk.CreateFileRequest
	if err := json.Unmarshal(c.MustGet(ctxBody).([]byte), &body); err != nil || body.Path == "" {
		c.String(http.StatusBadRequest, "path is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findPath(body.Path) != nil {
		c.String(http.StatusConflict, "file already exists")
		return
	}

	f := &File{ID: uuid.NewString(), Path: body.Path}
	s.files = append(s.files, f)
	c.PureJSON(http.StatusOK, skbsdk.CreateFileResponse{ID: f.ID})
}

func (s *Server) handleUpload(c *gin.Context) {
	modTime, err := skbsdk.ParseLastModified(c.GetHeader(skbsdk.HeaderLastModified))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid Last-Modified")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.findID(c.Param("id"))
	if f == nil {
		c.String(http.StatusNotFound, "file not found")
		return
	}

	f.Content = slices.Clone(c.MustGet(ctxBody).([]byte))
	f.LastModified = modTime.Unix()
	f.Uploaded = true
	c.Status(http.StatusOK)
}

func (s *Server) handleDownload(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.findID(c.Param("id"))
	if f == nil || !f.Uploaded {
		c.String(http.StatusNotFound, "file not found")
		return
	}

	if !s.OmitLastModified {
		c.Header(skbsdk.HeaderLastModified, skbsdk.FormatLastModified(time.Unix(f.LastModified, 0)))
	}
	c.Data(http.StatusOK, skbsdk.ContentTypeOctetStream, f.Content)
}

func (s *Server) handleDelete(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	idx := slices.IndexFunc(s.files, func(f *File) bool { return f.ID == id })
	if idx < 0 {
		c.String(http.StatusNotFound, "file not found")
		return
	}

	s.files = slices.Delete(s.files, idx, idx+1)
	c.Status(http.StatusOK)
}

func (s *Server) handleDiscover(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	servers := slices.Clone(s.discover)
	if servers == nil {
		servers = []skbsdk.ServerItem{}
	}
	c.PureJSON(http.StatusOK, skbsdk.DiscoverResponse{Servers: servers})
}

func (s *Server) handleServerAdd(c *gin.Context) {
	hostname := c.Query("hostname")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.discover, func(i skbsdk.ServerItem) bool { return i.Hostname == hostname })
	if idx < 0 {
		c.String(http.StatusNotFound, "server not found")
		return
	}

	item := s.discover[idx]
	s.discover = slices.Delete(s.discover, idx, idx+1)
	s.servers = append(s.servers, skbsdk.InfoServer{
		Hostname:            item.Hostname,
		OldHostnames:        []string{},
		Owner:               item.Owner,
		BlockSize:           item.BlockSize,
		FreeBlocks:          item.FreeBlocks,
		HealthcheckPercent:  item.HealthcheckPercent,
		HealthcheckInterval: item.HealthcheckInterval,
		IsVerified:          true,
		Healthy:             true,
	})
	c.PureJSON(http.StatusOK, skbsdk.BackupCodeResponse{BackupCode: backupCode(hostname)})
}

func (s *Server) handleServerAccept(c *gin.Context) {
	hostname := c.Query("hostname")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.servers, func(i skbsdk.InfoServer) bool { return i.Hostname == hostname })
	if idx < 0 {
		c.String(http.StatusNotFound, "server not found")
		return
	}

	s.servers[idx].IsVerified = true
	c.PureJSON(http.StatusOK, skbsdk.BackupCodeResponse{BackupCode: backupCode(hostname)})
}

func (s *Server) handleServerDelete(c *gin.Context) {
	hostname := c.Query("hostname")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.servers, func(i skbsdk.InfoServer) bool { return i.Hostname == hostname })
	if idx < 0 {
		c.String(http.StatusNotFound, "server not found")
		return
	}

	s.servers = slices.Delete(s.servers, idx, idx+1)
	c.Status(http.StatusOK)
}

func (s *Server) findPath(path string) *File {
	for _, f := range s.files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

func (s *Server) findID(id string) *File {
	for _, f := range s.files {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func backupCode(hostname string) string {
	return fmt.Sprintf("backup-%s", hostname)
}
