package config

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewDamageForTest(location string, resume bool) *Damage {
	return &Damage{location: location, resume: resume}
}

func NewSlackForTest(botToken, channelID string) *Slack {
	return &Slack{botToken: botToken, channelID: channelID}
}

func NewZammadForTest(rate float64, threshold uint) *Zammad {
	return &Zammad{rate: rate, threshold: threshold}
}
