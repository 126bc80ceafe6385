package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"paymgr/report"
)

func main() {
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	dsn := os.Getenv("PAYMGR_DATABASE_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "PAYMGR_DATABASE_DSN not set; export it and retry")
		os.Exit(2)
	}

	report.RunReport(dsn, *month, *list)
}
