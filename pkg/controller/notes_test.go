//go:build unit

package controller_test

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/animalet/notes-api/pkg/controller"
	"github.com/animalet/notes-api/pkg/notes"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type memoryStore struct {
	notes     map[string]notes.Note
	seq       int
	err       error
	lastLimit int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{notes: map[string]notes.Note{}}
}

func (m *memoryStore) Create(_ context.Context, in notes.NoteCreate) (notes.Note, error) {
	if m.err != nil {
		return notes.Note{}, m.err
	}
	m.seq++
	now := time.Date(2024, 1, 1, 0, m.seq, 0, 0, time.UTC)
	note := notes.Note{
		ID:        fmt.Sprintf("note-%d", m.seq),
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		Completed: in.Completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	m.notes[note.ID] = note
	return note, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (notes.Note, error) {
	if m.err != nil {
		return notes.Note{}, m.err
	}
	note, ok := m.notes[id]
	if !ok {
		return notes.Note{}, errors.Wrapf(notes.ErrNoteNotFound, "note %q", id)
	}
	return note, nil
}

func (m *memoryStore) List(_ context.Context, limit int) ([]notes.Note, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	list := make([]notes.Note, 0, len(m.notes))
	for _, note := range m.notes {
		list = append(list, note)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *memoryStore) Update(ctx context.Context, id string, u notes.NoteUpdate) (notes.Note, error) {
	note, err := m.Get(ctx, id)
	if err != nil {
		return notes.Note{}, err
	}
	if u.Title != nil {
		note.Title = *u.Title
	}
	if u.Content != nil {
		note.Content = *u.Content
	}
	if u.Tags != nil {
		note.Tags = *u.Tags
	}
	if u.Completed != nil {
		note.Completed = *u.Completed
	}
	m.notes[id] = note
	return note, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.notes[id]; !ok {
		return errors.Wrapf(notes.ErrNoteNotFound, "note %q", id)
	}
	delete(m.notes, id)
	return nil
}

func (m *memoryStore) ByTag(_ context.Context, tag string) ([]notes.Note, error) {
	if m.err != nil {
		return nil, m.err
	}
	list := []notes.Note{}
	for _, note := range m.notes {
		for _, t := range note.Tags {
			if t == tag {
				list = append(list, note)
				break
			}
		}
	}
	return list, nil
}

func (m *memoryStore) Ping(_ context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return min(len(m.notes), 1), nil
}

var _ = Describe("Notes Controller", func() {
	var (
		store  *memoryStore
		engine *gin.Engine
	)

	BeforeEach(func() {
		store = newMemoryStore()
		engine = newEngine(controller.NewNotesController(store))
	})

	seed := func(title string, tags ...string) notes.Note {
		note, err := store.Create(context.Background(), notes.NoteCreate{Title: title, Content: "content", Tags: tags})
		Expect(err).NotTo(HaveOccurred())
		return note
	}

	It("should refuse to bind without a store", func() {
		err := controller.NewNotesController(nil).Bind(gin.New().Group("/api"))
		Expect(err).To(MatchError(ContainSubstring("requires a store")))
	})

	Context("create", func() {
		It("should create a note and answer 201", func() {
			w := perform(engine, http.MethodPost, "/api/v1/notes", `{"title":"Groceries","content":"milk","tags":["home"]}`)
			Expect(w.Code).To(Equal(http.StatusCreated))

			var note notes.Note
			decodeJSON(w, &note)
			Expect(note.ID).NotTo(BeEmpty())
			Expect(note.Title).To(Equal("Groceries"))
			Expect(note.Tags).To(Equal([]string{"home"}))
			Expect(store.notes).To(HaveKey(note.ID))
		})

		It("should accept a trailing slash", func() {
			w := perform(engine, http.MethodPost, "/api/v1/notes/", `{"title":"t","content":"c"}`)
			Expect(w.Code).To(Equal(http.StatusCreated))
		})

		DescribeTable("should reject invalid notes with 422",
			func(body string) {
				w := perform(engine, http.MethodPost, "/api/v1/notes", body)
				Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
				Expect(store.notes).To(BeEmpty())
			},
			Entry("missing title", `{"content":"c"}`),
			Entry("missing content", `{"title":"t"}`),
			Entry("title too long", fmt.Sprintf(`{"title":"%s","content":"c"}`, strings.Repeat("x", 201))),
			Entry("tags not a list", `{"title":"t","content":"c","tags":"home"}`),
			Entry("not JSON", `title=t`),
		)

		It("should answer 500 when the store fails", func() {
			store.err = errors.New("throttled")
			w := perform(engine, http.MethodPost, "/api/v1/notes", `{"title":"t","content":"c"}`)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(ContainSubstring("Failed to create note"))
		})
	})

	Context("list", func() {
		It("should list notes newest first with the default limit", func() {
			first := seed("first")
			second := seed("second")

			w := perform(engine, http.MethodGet, "/api/v1/notes", "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var list []notes.Note
			decodeJSON(w, &list)
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal(second.ID))
			Expect(list[1].ID).To(Equal(first.ID))
			Expect(store.lastLimit).To(Equal(notes.DefaultListLimit))
		})

		It("should pass the requested limit", func() {
			w := perform(engine, http.MethodGet, "/api/v1/notes/?limit=5", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`[]`))
			Expect(store.lastLimit).To(Equal(5))
		})

		DescribeTable("should reject bad limits with 422",
			func(limit string) {
				w := perform(engine, http.MethodGet, "/api/v1/notes?limit="+limit, "")
				Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			},
			Entry("not a number", "ten"),
			Entry("zero", "0"),
			Entry("too large", "1001"),
		)
	})

	Context("get", func() {
		It("should return a note", func() {
			note := seed("read me")
			w := perform(engine, http.MethodGet, "/api/v1/notes/"+note.ID, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var got notes.Note
			decodeJSON(w, &got)
			Expect(got.Title).To(Equal("read me"))
		})

		It("should answer 404 with the id", func() {
			w := perform(engine, http.MethodGet, "/api/v1/notes/nope", "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).To(MatchJSON(`{"detail":"Note with ID 'nope' not found"}`))
		})
	})

	Context("update", func() {
		It("should update the given fields", func() {
			note := seed("old")
			w := perform(engine, http.MethodPut, "/api/v1/notes/"+note.ID, `{"title":"new","completed":true}`)
			Expect(w.Code).To(Equal(http.StatusOK))

			var got notes.Note
			decodeJSON(w, &got)
			Expect(got.Title).To(Equal("new"))
			Expect(got.Completed).To(BeTrue())
			Expect(got.Content).To(Equal("content"))
		})

		It("should answer 404 for a missing note", func() {
			w := perform(engine, http.MethodPut, "/api/v1/notes/nope", `{"title":"new"}`)
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).To(MatchJSON(`{"detail":"Note with ID 'nope' not found"}`))
		})

		It("should reject an empty title with 422", func() {
			note := seed("old")
			w := perform(engine, http.MethodPut, "/api/v1/notes/"+note.ID, `{"title":""}`)
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(store.notes[note.ID].Title).To(Equal("old"))
		})
	})

	Context("delete", func() {
		It("should delete and confirm", func() {
			note := seed("doomed")
			w := perform(engine, http.MethodDelete, "/api/v1/notes/"+note.ID, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(fmt.Sprintf(`{"message":"Note '%s' deleted successfully"}`, note.ID)))
			Expect(store.notes).NotTo(HaveKey(note.ID))
		})

		It("should answer 404 for a missing note", func() {
			w := perform(engine, http.MethodDelete, "/api/v1/notes/nope", "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Context("tags", func() {
		It("should return only tagged notes", func() {
			tagged := seed("a", "work")
			seed("b", "home")

			w := perform(engine, http.MethodGet, "/api/v1/notes/tags/work", "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var list []notes.Note
			decodeJSON(w, &list)
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(tagged.ID))
		})

		It("should return an empty list for unknown tags", func() {
			w := perform(engine, http.MethodGet, "/api/v1/notes/tags/none", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`[]`))
		})
	})

	Context("health check", func() {
		It("should report healthy with a count", func() {
			seed("a")
			w := perform(engine, http.MethodGet, "/api/v1/notes/health/check", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"healthy","message":"DynamoDB connection is working","notes_count":1}`))
		})

		It("should report unhealthy with 503", func() {
			store.err = errors.New("connection refused")
			w := perform(engine, http.MethodGet, "/api/v1/notes/health/check", "")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"unhealthy","message":"DynamoDB connection failed"}`))
		})
	})
})
