package validator

// renamed maps batch keys to their submission names
var renamed = map[string]string{
	KeyAlign: "alignfile",
}

// normalize flattens the first-wins params into a submission map. Every
// file key gets a sibling <key>_type telling local uploads from urls.
func (c *jobCheck) normalize() NormalizedJob {
	out := make(NormalizedJob, len(c.order)*2)
	for _, key := range c.order {
		value := c.params[key].Text()
		name := key
		if r, ok := renamed[key]; ok {
			name = r
		}
		out[name] = value
		if c.isFileKey(key) {
			out[name+"_type"] = FileKind(value)
		}
	}
	return out
}

// isFileKey uses the job kind when known; otherwise a key is a file key if
// it is one for any kind.
func (c *jobCheck) isFileKey(key string) bool {
	if c.kind != "" {
		return c.v.env.IsFileKey(c.kind, key)
	}
	for _, kind := range kinds {
		if c.v.env.IsFileKey(kind, key) {
			return true
		}
	}
	return false
}
