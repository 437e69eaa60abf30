package lefrecce

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSolutionsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solutions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		checks := map[string]string{
			"origin":      "Bologna Centrale",
			"destination": "Cesena",
			"adate":       "01/03/2024",
			"atime":       "08",
			"arflag":      "A",
		}
		for k, want := range checks {
			if got := q.Get(k); got != want {
				t.Errorf("query %s = %q, want %q", k, got, want)
			}
		}
		fmt.Fprint(w, `[{"idsolution": "abc", "departuretime": 1709277000000, "arrivaltime": 1709280720000,
			"minprice": 7.9, "duration": "01:02", "changesno": 0, "trainlist": [{"trainidentifier": "Regionale 6514", "trainacronym": "REG"}]}]`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, 0, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	when := time.Date(2024, 3, 1, 8, 5, 0, 0, time.UTC)
	got, err := c.Solutions(context.Background(), "Bologna Centrale", "Cesena", when)
	if err != nil {
		t.Fatalf("Solutions: %v", err)
	}
	if len(got) != 1 || got[0].ID != "abc" || got[0].MinPrice == nil || *got[0].MinPrice != 7.9 {
		t.Errorf("unexpected solutions %+v", got)
	}
	if got[0].DepartureTime != 1709277000000 {
		t.Errorf("departure = %d", got[0].DepartureTime)
	}
}

func TestSessionCookieIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/solutions":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s1", Path: "/"})
			fmt.Fprint(w, `[{"idsolution": "abc"}]`)
		case "/solutions/abc/standardoffers":
			if c, err := r.Cookie("JSESSIONID"); err != nil || c.Value != "s1" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			fmt.Fprint(w, `{"idsolution": "abc", "leglist": [{"segments": [
				{"trainidentifier": "Regionale 6514", "trainacronym": "REG",
				 "departurestation": "Bologna Centrale", "departuretime": "2024-03-01T08:10:00.000+01:00",
				 "arrivalstation": "Cesena", "arrivaltime": "2024-03-01T09:12:00.000+01:00"}]}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, 0, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Solutions(context.Background(), "A", "B", time.Now()); err != nil {
		t.Fatalf("Solutions: %v", err)
	}
	details, err := c.SolutionDetails(context.Background(), "abc")
	if err != nil {
		t.Fatalf("SolutionDetails: %v", err)
	}
	if len(details.Legs) != 1 || len(details.Legs[0].Segments) != 1 {
		t.Fatalf("unexpected details %+v", details)
	}
	seg := details.Legs[0].Segments[0]
	if seg.TrainAcronym == nil || *seg.TrainAcronym != "REG" || seg.ArrivalStation != "Cesena" {
		t.Errorf("unexpected segment %+v", seg)
	}
}

func TestSolutionDetailsCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"idsolution": "x", "leglist": []}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, 4, time.Minute)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.SolutionDetails(context.Background(), "x"); err != nil {
			t.Fatalf("SolutionDetails: %v", err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, 0, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Solutions(context.Background(), "A", "B", time.Now()); err == nil {
		t.Error("expected decode error")
	}
}
