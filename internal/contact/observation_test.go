package contact_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/longshorej/seedling/internal/contact"
)

var _ = Describe("Observation", func() {
	var t0 time.Time
	BeforeEach(func() {
		t0 = time.Unix(1000, 0)
	})
	Describe("Lowest", func() {
		It("Should return the same candidate regardless of insertion order", func() {
			a := contact.Candidate{Host: "10.0.0.2", Port: 9000}
			b := contact.Candidate{Host: "10.0.0.5", Port: 9000}
			c := contact.Candidate{Host: "10.0.0.5", Port: 80}
			orders := [][]contact.Candidate{
				{a, b, c},
				{c, b, a},
				{b, a, c},
			}
			for _, candidates := range orders {
				low, ok := contact.New(t0, candidates).Lowest()
				Expect(ok).To(BeTrue())
				Expect(low).To(Equal(a))
			}
		})
		It("Should order candidates on the same host by port", func() {
			low, ok := contact.New(t0, []contact.Candidate{
				{Host: "10.0.0.2", Port: 9000},
				{Host: "10.0.0.2", Port: 80},
			}).Lowest()
			Expect(ok).To(BeTrue())
			Expect(low.Port).To(Equal(80))
		})
		It("Should treat a missing port as zero", func() {
			low, _ := contact.New(t0, []contact.Candidate{
				{Host: "10.0.0.2", Port: 9000},
				{Host: "10.0.0.2"},
			}).Lowest()
			Expect(low.Port).To(Equal(0))
		})
		It("Should report no candidate for an empty observation", func() {
			_, ok := contact.None().Lowest()
			Expect(ok).To(BeFalse())
		})
	})
	Describe("Merge", func() {
		It("Should keep the original timestamp when the candidate set is unchanged", func() {
			t1 := t0.Add(5 * time.Second)
			o1 := contact.New(t0, []contact.Candidate{{Host: "a"}, {Host: "b"}})
			o2 := contact.New(t1, []contact.Candidate{{Host: "b"}, {Host: "a"}})
			Expect(o1.Merge(o2).At).To(Equal(t0))
		})
		It("Should take the new observation when the candidate set changed", func() {
			t1 := t0.Add(5 * time.Second)
			o1 := contact.New(t0, []contact.Candidate{{Host: "a"}})
			o2 := contact.New(t1, []contact.Candidate{{Host: "a"}, {Host: "b"}})
			merged := o1.Merge(o2)
			Expect(merged.At).To(Equal(t1))
			Expect(merged.Candidates).To(HaveLen(2))
		})
		It("Should ignore order and duplicates when comparing sets", func() {
			o1 := contact.New(t0, []contact.Candidate{{Host: "a"}, {Host: "b"}, {Host: "a"}})
			o2 := contact.New(t0.Add(time.Second), []contact.Candidate{{Host: "b"}, {Host: "a"}})
			Expect(o1.ChangedFrom(o2)).To(BeFalse())
		})
	})
	Describe("PastStableMargin", func() {
		It("Should flip exactly at the margin boundary", func() {
			margin := 5 * time.Second
			o := contact.New(t0, []contact.Candidate{{Host: "a"}})
			Expect(o.PastStableMargin(t0.Add(margin-time.Nanosecond), margin)).To(BeFalse())
			Expect(o.PastStableMargin(t0.Add(margin), margin)).To(BeTrue())
		})
		It("Should never pass before any resolution has landed", func() {
			o := contact.None()
			now := time.Now().Add(100 * 365 * 24 * time.Hour)
			Expect(o.PastStableMargin(now, 0)).To(BeFalse())
		})
	})
})

var _ = Describe("Candidate", func() {
	Describe("Address", func() {
		It("Should use the advertised port when present", func() {
			c := contact.Candidate{Host: "10.0.0.2", Port: 9000}
			Expect(c.Address(3040)).To(BeEquivalentTo("10.0.0.2:9000"))
		})
		It("Should substitute the fallback port when none was advertised", func() {
			c := contact.Candidate{Host: "10.0.0.2"}
			Expect(c.Address(3040)).To(BeEquivalentTo("10.0.0.2:3040"))
		})
	})
	Describe("ParseAddress", func() {
		It("Should round-trip a bound address", func() {
			c, err := contact.ParseAddress("10.0.0.2:9000")
			Expect(err).ToNot(HaveOccurred())
			Expect(c).To(Equal(contact.Candidate{Host: "10.0.0.2", Port: 9000}))
		})
		It("Should reject an address without a port", func() {
			_, err := contact.ParseAddress("10.0.0.2")
			Expect(err).To(HaveOccurred())
		})
	})
})
