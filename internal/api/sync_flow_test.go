package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/elter-ri/vocabs-sync/internal/api"
	"github.com/elter-ri/vocabs-sync/internal/auth"
	"github.com/elter-ri/vocabs-sync/internal/graphstore"
	"github.com/elter-ri/vocabs-sync/internal/httpclient"
	"github.com/elter-ri/vocabs-sync/internal/sources"
	pkgsync "github.com/elter-ri/vocabs-sync/internal/sync"
	"github.com/elter-ri/vocabs-sync/internal/sync/coordinator"
)

// graphStore records the last document uploaded to each graph
type graphStore struct {
	mu      sync.Mutex
	graphs  map[string]string
	uploads int
}

func (s *graphStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "admin" || pass != "pw" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[r.URL.Query().Get("graph")] = string(body)
	s.uploads++
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"count":1}`))
}

func (s *graphStore) graph(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphs[name]
}

func (s *graphStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

var _ = Describe("POST /sync", func() {
	var (
		sourceServer *httptest.Server
		storeServer  *httptest.Server
		store        *graphStore
		router       http.Handler
	)

	BeforeEach(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/elter_cl.ttl", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<urn:a> <urn:b> <urn:c> ."))
		})
		mux.HandleFunc("/envthes.rdf", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<rdf:RDF/>"))
		})
		sourceServer = httptest.NewServer(mux)

		store = &graphStore{graphs: map[string]string{}}
		storeServer = httptest.NewServer(store)

		registry, err := sources.NewRegistry(
			sources.SourceEntry{URI: sourceServer.URL + "/elter_cl.ttl", Graph: "http://vocabs.lter-europe.net/elter_cl/"},
			sources.SourceEntry{URI: sourceServer.URL + "/missing.ttl", Graph: "http://vocabs.lter-europe.net/missing/"},
			sources.SourceEntry{URI: sourceServer.URL + "/envthes.rdf", Graph: "http://vocabs.lter-europe.net/EnvThes/"},
		)
		Expect(err).NotTo(HaveOccurred())

		client := httpclient.NewDefaultClient(5 * time.Second)
		publisher, err := graphstore.NewGSPPublisher(client, storeServer.URL+"/skosmos/data",
			graphstore.WithBasicAuth("admin", "pw"),
		)
		Expect(err).NotTo(HaveOccurred())

		engine := pkgsync.NewEngine(registry, sources.NewHTTPFetcher(client), publisher)
		bearer, err := auth.NewBearerMiddleware("secret")
		Expect(err).NotTo(HaveOccurred())

		router = api.NewServer(coordinator.New(engine), api.WithTriggerAuth(bearer))
	})

	AfterEach(func() {
		sourceServer.Close()
		storeServer.Close()
	})

	post := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	Context("with the right secret", func() {
		It("replaces every reachable graph and reports the broken source", func() {
			rr := post("Bearer secret")

			Expect(rr.Code).To(Equal(http.StatusOK))
			body := rr.Body.String()
			Expect(gjson.Get(body, "status").String()).To(Equal("partial"))
			Expect(gjson.Get(body, "trigger").String()).To(Equal("manual"))
			Expect(gjson.Get(body, "results.#").Int()).To(Equal(int64(3)))
			Expect(gjson.Get(body, "results.1.fetchStatus").String()).To(Equal("fetch_failed"))
			Expect(gjson.Get(body, "results.1.publishStatus").String()).To(Equal("skipped"))
			Expect(gjson.Get(body, "results.1.error").String()).To(ContainSubstring("HTTP 404"))

			Expect(store.graph("http://vocabs.lter-europe.net/elter_cl/")).To(Equal("<urn:a> <urn:b> <urn:c> ."))
			Expect(store.graph("http://vocabs.lter-europe.net/EnvThes/")).To(Equal("<rdf:RDF/>"))
			Expect(store.graph("http://vocabs.lter-europe.net/missing/")).To(BeEmpty())
			Expect(store.uploadCount()).To(Equal(2))
		})

		It("serializes concurrent triggers", func() {
			var wg sync.WaitGroup
			codes := make(chan int, 4)
			for range 4 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					codes <- post("Bearer secret").Code
				}()
			}
			wg.Wait()
			close(codes)

			for code := range codes {
				Expect(code).To(Equal(http.StatusOK))
			}
			Expect(store.uploadCount()).To(Equal(8))
		})
	})

	Context("without valid credentials", func() {
		DescribeTable("rejects the request before any run",
			func(header string) {
				rr := post(header)

				Expect(rr.Code).To(Equal(http.StatusUnauthorized))
				Expect(rr.Header().Get("WWW-Authenticate")).To(HavePrefix("Bearer"))
				Expect(strings.TrimSpace(rr.Body.String())).To(Equal(`{"error":"unauthorized"}`))
				Expect(store.uploadCount()).To(BeZero())
			},
			Entry("no header", ""),
			Entry("wrong secret", "Bearer wrong"),
			Entry("unset secret placeholder", "Bearer None"),
		)
	})
})
