package ollama

func buildPlatePrompt() string {
	return `You read UK vehicle registration plates.
Return strict JSON object with keys:
text (string, every character printed on the plate, empty if no plate is visible),
confidence (number from 0 to 100).
No markdown, no extra keys.`
}
