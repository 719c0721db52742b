package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

const sampleTable = `<html><body>
<p>query ok</p>
<table>
<tr><th>id</th><th>gamename</th><th>median</th></tr>
<tr><td>12345</td><td>Sample VN</td><td>85</td></tr>
<tr><td>67890</td><td>Another</td></tr>
</table>
</body></html>`

func TestParseTable(t *testing.T) {
	rows := parseTable([]byte(sampleTable))
	if len(rows) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(rows))
	}
	if rows[0]["id"] != "12345" || rows[0]["gamename"] != "Sample VN" || rows[0]["median"] != "85" {
		t.Fatalf("第一行解析错误：%v", rows[0])
	}
	// 缺失的尾部单元格应被忽略，而不是报错。
	if _, ok := rows[1]["median"]; ok {
		t.Fatalf("缺失单元格不应出现在行映射里：%v", rows[1])
	}
	if rows[1]["gamename"] != "Another" {
		t.Fatalf("第二行解析错误：%v", rows[1])
	}
}

func TestParseTable_NoTable(t *testing.T) {
	if rows := parseTable([]byte(`<html><body><p>no results</p></body></html>`)); len(rows) != 0 {
		t.Fatalf("无表格时应返回空切片，实际 %d 行", len(rows))
	}
}

func TestParseTable_Entities(t *testing.T) {
	rows := parseTable([]byte(`<table><tr><th>v</th></tr><tr><td>A &amp; B</td></tr></table>`))
	if len(rows) != 1 || rows[0]["v"] != "A & B" {
		t.Fatalf("实体未解码：%v", rows)
	}
}

func TestEscapeLike(t *testing.T) {
	cases := []struct{ in, want string }{
		{"abc", "abc"},
		{"it's", "it''s"},
		{"100%", "100!%"},
		{"a_b", "a!_b"},
		{"wow!", "wow!!"},
		{"'!%_", "''!!!%!_"},
	}
	for _, c := range cases {
		if got := EscapeLike(c.in); got != c.want {
			t.Fatalf("EscapeLike(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestExecute_RateLimitSpacing(t *testing.T) {
	var (
		mu     sync.Mutex
		starts []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		w.Write([]byte(sampleTable))
	}))
	defer srv.Close()

	const interval = 60 * time.Millisecond
	g := New(srv.URL, srv.Client(), NewLimiter(interval), zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := g.Execute(context.Background(), "SELECT 1"); err != nil {
			t.Fatalf("Execute 失败：%v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 3 {
		t.Fatalf("期望 3 次请求，实际 %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < interval {
			t.Fatalf("第 %d 次请求间隔 %v，低于最小间隔 %v", i, gap, interval)
		}
	}
}

func TestExecute_SharedLimiterAcrossCallers(t *testing.T) {
	var (
		mu     sync.Mutex
		starts []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		w.Write([]byte(sampleTable))
	}))
	defer srv.Close()

	const interval = 60 * time.Millisecond
	lim := NewLimiter(interval)
	g := New(srv.URL, srv.Client(), lim, zap.NewNop())

	// 两个互不相关的“解析请求”并发使用同一个限速器。
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 2; j++ {
				if _, err := g.Execute(context.Background(), "SELECT 1"); err != nil {
					t.Errorf("Execute 失败：%v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 4 {
		t.Fatalf("期望 4 次请求，实际 %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < interval-5*time.Millisecond {
			t.Fatalf("并发调用下第 %d 次请求间隔 %v，违反全局限速 %v", i, gap, interval)
		}
	}
}

func TestExecute_Cancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleTable))
	}))
	defer srv.Close()

	lim := NewLimiter(time.Hour)
	g := New(srv.URL, srv.Client(), lim, zap.NewNop())

	// 先消耗掉 burst，再在限速等待中取消。
	if _, err := g.Execute(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("首次 Execute 失败：%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := g.Execute(ctx, "SELECT 1"); err == nil {
		t.Fatalf("取消后应返回错误")
	}
}

func TestExecute_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := New(srv.URL, srv.Client(), NewLimiter(time.Millisecond), zap.NewNop())
	if _, err := g.Execute(context.Background(), "SELECT 1"); err == nil {
		t.Fatalf("非 2xx 应返回错误")
	}
}

func TestExecute_SendsFormEncodedSQL(t *testing.T) {
	var gotSQL, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotSQL = r.PostFormValue("sql")
		gotCT = r.Header.Get("Content-Type")
		w.Write([]byte(sampleTable))
	}))
	defer srv.Close()

	g := New(srv.URL, srv.Client(), NewLimiter(time.Millisecond), zap.NewNop())
	if _, err := g.Execute(context.Background(), "SELECT id FROM gamelist"); err != nil {
		t.Fatalf("Execute 失败：%v", err)
	}
	if gotSQL != "SELECT id FROM gamelist" {
		t.Fatalf("sql 参数=%q", gotSQL)
	}
	if gotCT != "application/x-www-form-urlencoded" {
		t.Fatalf("Content-Type=%q", gotCT)
	}
}
