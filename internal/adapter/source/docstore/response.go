package docstore

// apiPage mirrors the wire format of the document store's paginated
// read endpoint.
type apiPage struct {
	Records []map[string]any `json:"records"`
	Total   int              `json:"total"`
	HasMore bool             `json:"hasMore"`
}
