package sqlinline

const QInsertContent = `--sql 63b25535-90aa-4d16-b764-c8a311d2d0e6
insert into contents (id, owner_id, topic, content_type, prompt, job_id, job_status, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6, 'queued', now(), now())
returning id, owner_id, topic, content_type, prompt, generated_content, content, job_id, job_status, created_at, updated_at;
`

const QSelectContentByID = `--sql 46ff06e6-7e0d-4f7f-bb90-5a20fb9d36d7
select id, owner_id, topic, content_type, prompt, generated_content, content, job_id, job_status, created_at, updated_at
from contents
where id = $1;
`

const QSelectContentByJobID = `--sql ffab785e-6d6c-4579-abfc-fb0974494a0c
select id, owner_id, topic, content_type, prompt, generated_content, content, job_id, job_status, created_at, updated_at
from contents
where job_id = $1;
`

const QUpdateContentFields = `--sql 82baa544-a866-4f1a-a04f-8c2de2347b95
update contents
set topic = coalesce($3, topic),
    content = coalesce($4, content),
    updated_at = now()
where id = $1 and owner_id = $2
returning id, owner_id, topic, content_type, prompt, generated_content, content, job_id, job_status, created_at, updated_at;
`

const QMarkContentProcessing = `--sql 5332996e-10a6-4491-8f5b-e492e8bb1519
update contents
set job_status = 'processing', updated_at = now()
where job_id = $1;
`

const QMarkContentCompleted = `--sql 22b8d0a8-419a-4f00-a1f2-87a3d03ed677
update contents
set generated_content = $2,
    content = case when content is null or content = '' then $2 else content end,
    job_status = 'completed',
    updated_at = now()
where job_id = $1;
`

const QMarkContentFailed = `--sql a4e587ba-3ecc-4073-84f7-a83d051320e3
update contents
set job_status = 'failed', updated_at = now()
where job_id = $1;
`

const QRollbackContent = `--sql 8405fee6-b305-401a-93a8-76b6fb39c541
update contents
set content = generated_content, updated_at = now()
where id = $1 and owner_id = $2 and generated_content is not null
returning id, owner_id, topic, content_type, prompt, generated_content, content, job_id, job_status, created_at, updated_at;
`

const QDeleteContent = `--sql e75768ba-92a1-4ede-948d-86d12c06990e
delete from contents
where id = $1 and owner_id = $2;
`
