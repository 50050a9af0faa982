package report_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-tracker/internal/report"
)

var _ = DescribeTable("FormatAmount",
	func(amount float64, currency, expected string) {
		Expect(report.FormatAmount(amount, currency)).To(Equal(expected))
	},
	Entry("dollars", 12.25, "USD", "$12.25"),
	Entry("rounds to cents", 0.1+0.2, "USD", "$0.30"),
	Entry("euros", 1234.5, "EUR", "€1,234.50"),
	Entry("zero fraction currency", 1500.0, "JPY", "¥1,500"),
	Entry("unknown currency", 3.5, "XXX-NOPE", "3.50"),
)
