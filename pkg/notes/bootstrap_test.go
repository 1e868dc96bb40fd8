//go:build unit

package notes_test

import (
	"context"
	"time"

	"github.com/animalet/notes-api/pkg/notes"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("Bootstrap", func() {
	var (
		fake  *fakeDynamoDB
		store *notes.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = newFakeDynamoDB()
		fake.tableExists = false
		store = notes.NewStore(fake, "notes", notes.WithTablePolling(5, time.Millisecond))
	})

	It("should parse the embedded sample notes", func() {
		samples, err := notes.SampleNotes()
		Expect(err).NotTo(HaveOccurred())
		Expect(samples).To(HaveLen(3))
		Expect(samples[0].Title).To(Equal("Welcome to DynamoDB"))
		Expect(samples[0].Tags).To(Equal([]string{"sample", "welcome", "dynamodb"}))
		Expect(samples[2].Completed).To(BeTrue())
		for _, sample := range samples {
			Expect(sample.Validate()).To(Succeed())
		}
	})

	Context("EnsureTable", func() {
		It("should create a missing table and wait until it is active", func() {
			fake.pending = 2
			created, err := store.EnsureTable(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(fake.creates).To(Equal(1))
			Expect(fake.pending).To(BeZero())
		})

		It("should wait for an existing table that is still being created", func() {
			fake.tableExists = true
			fake.pending = 2
			created, err := store.EnsureTable(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(fake.pending).To(BeZero())
			Expect(fake.creates).To(BeZero())
		})

		It("should leave an existing table alone", func() {
			fake.tableExists = true
			created, err := store.EnsureTable(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(fake.creates).To(BeZero())
		})

		It("should give up when the table never becomes active", func() {
			fake.pending = 100
			_, err := store.EnsureTable(ctx)
			Expect(err).To(MatchError(ContainSubstring("did not become active")))
		})

		It("should wrap unexpected describe failures", func() {
			fake.describeErr = errors.New("connection refused")
			_, err := store.EnsureTable(ctx)
			Expect(err).To(MatchError(ContainSubstring("failed to describe table")))
			Expect(fake.creates).To(BeZero())
		})
	})

	Context("Bootstrap", func() {
		It("should create the table and seed the samples", func() {
			Expect(notes.Bootstrap(ctx, store, 3, time.Millisecond)).To(Succeed())
			list, err := store.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(3))
		})

		It("should seed the samples when the new table outlasts the first wait", func() {
			fake.pending = 6
			Expect(notes.Bootstrap(ctx, store, 3, time.Millisecond)).To(Succeed())
			Expect(fake.creates).To(Equal(1))
			Expect(fake.items).To(HaveLen(3))
		})

		It("should not seed a table that already existed", func() {
			fake.tableExists = true
			Expect(notes.Bootstrap(ctx, store, 3, time.Millisecond)).To(Succeed())
			Expect(fake.items).To(BeEmpty())
		})

		It("should retry while DynamoDB is unreachable and then give up", func() {
			fake.describeErr = errors.New("connection refused")
			err := notes.Bootstrap(ctx, store, 3, time.Millisecond)
			Expect(err).To(MatchError(ContainSubstring("could not create DynamoDB tables")))
		})
	})

	It("should seed concurrently and report the first failure", func() {
		fake.tableExists = true
		fake.err = errors.New("throttled")
		err := store.Seed(ctx, []notes.NoteCreate{{Title: "a", Content: "a"}, {Title: "b", Content: "b"}})
		Expect(err).To(MatchError(ContainSubstring("failed to seed notes")))
	})
})
