// Package sql embeds the schema migrations and the queries run against the
// price store.
package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/query_prices.sql
var QueryPrices string

//go:embed queries/search_prices.sql
var SearchPrices string

//go:embed queries/register_price_file.sql
var RegisterPriceFile string

//go:embed queries/lookup_price_file.sql
var LookupPriceFile string

//go:embed queries/supersede_price_files.sql
var SupersedePriceFiles string

//go:embed queries/get_description.sql
var GetDescription string

//go:embed queries/upsert_description.sql
var UpsertDescription string

//go:embed queries/delete_description.sql
var DeleteDescription string

//go:embed queries/is_preventative.sql
var IsPreventative string

//go:embed queries/add_preventative.sql
var AddPreventative string

//go:embed queries/list_hospitals.sql
var ListHospitals string

//go:embed queries/delete_batch.sql
var DeleteBatch string
