package realtime

// Socket.IO delivers JSON object arguments as map[string]any. These
// helpers pull typed fields out without panicking on malformed input.

func objectPayload(datas []any) map[string]any {
	if len(datas) == 0 {
		return nil
	}
	payload, _ := datas[0].(map[string]any)
	return payload
}

func strField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	value, _ := payload[key].(string)
	return value
}
