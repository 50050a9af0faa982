package report

var FormatAmount = formatAmount
