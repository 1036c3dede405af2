package postgresql

// migrations returns the ordered schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS journeys (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL DEFAULT 'draft',
				nodes JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				activated_at TIMESTAMP WITH TIME ZONE,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_journeys_status ON journeys (status) WHERE deleted_at IS NULL;

			CREATE TABLE IF NOT EXISTS journey_executions (
				id UUID PRIMARY KEY,
				journey_id UUID NOT NULL REFERENCES journeys (id),
				customer_id VARCHAR(255) NOT NULL,
				current_node_id VARCHAR(255) NOT NULL DEFAULT '',
				state VARCHAR(20) NOT NULL,
				entered_at TIMESTAMP WITH TIME ZONE NOT NULL,
				wait_until TIMESTAMP WITH TIME ZONE,
				branch_picks JSONB NOT NULL DEFAULT '{}',
				failure_type VARCHAR(30) NOT NULL DEFAULT '',
				failure_reason TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				finished_at TIMESTAMP WITH TIME ZONE,
				UNIQUE (journey_id, customer_id)
			);

			CREATE INDEX IF NOT EXISTS idx_executions_state ON journey_executions (state);
			CREATE INDEX IF NOT EXISTS idx_executions_wait_until ON journey_executions (wait_until) WHERE state = 'waiting';

			CREATE TABLE IF NOT EXISTS segments (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				criteria JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE IF NOT EXISTS churn_stages (
				id UUID PRIMARY KEY,
				name VARCHAR(100) NOT NULL,
				slug VARCHAR(100) NOT NULL UNIQUE,
				severity INTEGER NOT NULL,
				color VARCHAR(20) NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS churn_metrics (
				id UUID PRIMARY KEY,
				stage_id UUID NOT NULL REFERENCES churn_stages (id),
				field VARCHAR(100) NOT NULL,
				operator VARCHAR(10) NOT NULL,
				threshold JSONB,
				threshold_max JSONB,
				weight INTEGER NOT NULL DEFAULT 1,
				active BOOLEAN NOT NULL DEFAULT TRUE
			);

			CREATE INDEX IF NOT EXISTS idx_churn_metrics_stage ON churn_metrics (stage_id);
		`,
	}
}
