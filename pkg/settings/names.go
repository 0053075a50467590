package settings

// Setting names referenced outside of the catalog.
const (
	Disabled         = "disabled"
	Blacklist        = "blacklist"
	SpoolDir         = "spoolDir"
	SpoolFile        = "spoolFile"
	FileName         = "fileName"
	FileMaxBytes     = "fileMaxBytes"
	FileBackupFiles  = "fileBackupFiles"
	OutputMode       = "outputMode"
	Mode             = "mode"
	Generator        = "generator"
	Rater            = "rater"
	Count            = "count"
	Interval         = "interval"
	Earliest         = "earliest"
	Latest           = "latest"
	RandomizeCount   = "randomizeCount"
	HourOfDayRate    = "hourOfDayRate"
	DayOfWeekRate    = "dayOfWeekRate"
	MinuteOfHourRate = "minuteOfHourRate"
	DayOfMonthRate   = "dayOfMonthRate"
	MonthOfYearRate  = "monthOfYearRate"
	SampleDir        = "sampleDir"
	TimezoneKey      = "timezone"
	ACLKey           = "eai:acl"
	UserNameKey      = "eai:userName"
	AppNameKey       = "eai:appName"
	Name             = "name"

	Debug   = "debug"
	Verbose = "verbose"

	Threading        = "threading"
	Queueing         = "queueing"
	OutputWorkers    = "outputWorkers"
	GeneratorWorkers = "generatorWorkers"
	MaxQueueLength   = "maxQueueLength"
	UseOutputQueue   = "useOutputQueue"
	NatsURL          = "natsUrl"
	RedisAddr        = "redisAddr"
	QueueBaseName    = "queueBaseName"

	MetricsLog       = "metricsLog"
	GraphiteHost     = "graphiteHost"
	GraphitePort     = "graphitePort"
	GraphitePrefix   = "graphitePrefix"
	GraphiteInterval = "graphiteInterval"
)

// Mode values.
const (
	ModeSample = "sample"
	ModeReplay = "replay"
)

// Threading and queueing values.
const (
	ThreadingThread  = "thread"
	ThreadingProcess = "process"

	QueueingInProcess = "inprocess"
	QueueingNATS      = "nats"
	QueueingRedis     = "redis"
)

// Token replacement types.
const (
	ReplacementStatic          = "static"
	ReplacementTimestamp       = "timestamp"
	ReplacementReplayTimestamp = "replaytimestamp"
	ReplacementRandom          = "random"
	ReplacementRated           = "rated"
	ReplacementFile            = "file"
	ReplacementMVFile          = "mvfile"
	ReplacementIntegerID       = "integerid"
)

// ReplacementTypes lists every accepted token replacement type.
var ReplacementTypes = []string{
	ReplacementStatic,
	ReplacementTimestamp,
	ReplacementReplayTimestamp,
	ReplacementRandom,
	ReplacementRated,
	ReplacementFile,
	ReplacementMVFile,
	ReplacementIntegerID,
}

// Token and host token field names.
const (
	FieldToken           = "token"
	FieldReplacementType = "replacementType"
	FieldReplacement     = "replacement"
)
