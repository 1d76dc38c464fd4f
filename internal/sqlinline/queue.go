package sqlinline

const QSubmitJob = `--sql a330747e-063c-4bca-94e0-f754f4d81902
insert into content_jobs (id, content_id, owner_id, content_type, topic, state, attempts_made, max_attempts, run_at, created_at, updated_at)
values ($1, $2, $3, $4, $5, 'pending', 0, $6, now() + ($7::bigint * interval '1 millisecond'), now(), now());
`

const QClaimJob = `--sql 43e13c18-671c-4045-882f-0d7cb9cbd0f2
with next_job as (
    select id
    from content_jobs
    where state = 'pending' and run_at <= now()
    order by run_at asc
    for update skip locked
    limit 1
),
updated as (
    update content_jobs
    set state = 'running', updated_at = now()
    where id in (select id from next_job)
    returning id, content_id, owner_id, content_type, topic, attempts_made, max_attempts, run_at
)
select * from updated;
`

const QCompleteJob = `--sql bac6a2e4-b804-41f9-be4b-6d021da768df
update content_jobs
set state = 'completed', progress = 100, return_value = $2, updated_at = now()
where id = $1;
`

const QRetryJob = `--sql 22080153-26fe-4f81-9805-e9a32835cec6
update content_jobs
set state = 'pending',
    attempts_made = $2,
    failed_reason = $3,
    run_at = now() + ($4::bigint * interval '1 millisecond'),
    updated_at = now()
where id = $1;
`

const QFailJob = `--sql bd7dff5b-3825-4cf4-8e13-82580883f42e
update content_jobs
set state = 'failed', attempts_made = $2, failed_reason = $3, updated_at = now()
where id = $1;
`

const QSelectJobStatus = `--sql 79c2d926-ff7c-4e88-a4cd-90ea1b000183
select state, progress, attempts_made, coalesce(failed_reason, ''), run_at
from content_jobs
where id = $1;
`

const QPruneJobs = `--sql 126265fa-009d-4a93-af13-49cbbda9c7a8
delete from content_jobs
where state in ('completed', 'failed')
  and updated_at < now() - ($1::bigint * interval '1 hour');
`
