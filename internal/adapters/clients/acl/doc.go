// Package acl is the anti-corruption layer between the quote core and the
// remote posts endpoint.
//
// Remote DTOs never leave this package. [PostsClient] implements
// ports.RemoteQuoteSource by translating JSONPlaceholder posts into
// domain.Quote values and back:
//
//	GET  {base}/posts?_limit=N   [{id, title, body, userId}]  ->  Quote{ID: id, Text: title, Category: "Server Data"}
//	POST {base}/posts            Quote{Text, Category}         ->  {title: text, body: category, userId: 1}
//
// Every failure, whether a transport error, an open circuit, exhausted
// retries or a non-2xx status, is reported as a *domain.NetworkError via
// [MapHTTPError]. Records are translated as-is; dropping unusable records is
// the sync engine's job.
package acl
