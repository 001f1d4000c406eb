package schema

// CrawlQueueTable represents the 'crawl_queue' table belonging to the
// out-of-scope crawler. This core only ever deletes by url or inserts
// re-crawl rows into it (spec §4.F, §4.H); it never reads crawl state back.
type CrawlQueueTable struct {
	Table      string
	ID         string
	URL        string
	ForceAllow string
	IsRecrawl  string
	CreatedAt  string
}

// CrawlQueue is the schema definition for the crawl_queue table.
var CrawlQueue = CrawlQueueTable{
	Table:      "crawl_queue",
	ID:         "id",
	URL:        "url",
	ForceAllow: "force_allow",
	IsRecrawl:  "is_recrawl",
	CreatedAt:  "created_at",
}
