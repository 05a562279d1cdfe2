package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- INDEXED_DOC TABLE (documentation registry)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS indexed_doc SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS url ON indexed_doc TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON indexed_doc TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON indexed_doc TYPE string;
    DEFINE FIELD IF NOT EXISTS job_id ON indexed_doc TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS indexed_by ON indexed_doc TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS pages ON indexed_doc TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS sections ON indexed_doc TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS error ON indexed_doc TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS indexed_at ON indexed_doc TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON indexed_doc TYPE option<datetime>;

    -- Unique url index doubles as the claim lock: concurrent submissions
    -- for the same doc race on this insert and only one wins.
    DEFINE INDEX IF NOT EXISTS indexed_doc_url ON indexed_doc FIELDS url UNIQUE;
    DEFINE INDEX IF NOT EXISTS indexed_doc_status ON indexed_doc FIELDS status;

    -- ==========================================================================
    -- CRAWL_JOB TABLE (durable job state for resume after restart)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS crawl_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS url ON crawl_job TYPE string;
    DEFINE FIELD IF NOT EXISTS doc_name ON crawl_job TYPE string;
    DEFINE FIELD IF NOT EXISTS user_id ON crawl_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON crawl_job TYPE string;
    DEFINE FIELD IF NOT EXISTS progress ON crawl_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS stage ON crawl_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS pages_found ON crawl_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS pages_done ON crawl_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS sections ON crawl_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS error ON crawl_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON crawl_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON crawl_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS crawl_job_status ON crawl_job FIELDS status;
    DEFINE INDEX IF NOT EXISTS crawl_job_user ON crawl_job FIELDS user_id;

    -- ==========================================================================
    -- SESSION_DOC TABLE (docs attached to a chat session)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS session_doc SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session_id ON session_doc TYPE string;
    DEFINE FIELD IF NOT EXISTS doc_url ON session_doc TYPE string;
    DEFINE FIELD IF NOT EXISTS doc_name ON session_doc TYPE string;
    DEFINE FIELD IF NOT EXISTS attached_at ON session_doc TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS session_doc_unique ON session_doc FIELDS session_id, doc_url UNIQUE;
    DEFINE INDEX IF NOT EXISTS session_doc_session ON session_doc FIELDS session_id;
`
